package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/goccy/go-yaml"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/darmiel/fxrelay/internal/config"
)

const redacted = "<redacted>"

var configShowYAML bool

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long:  "Shows the configuration with every default applied. Secrets are redacted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := f.LoadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = redact(*cfg)

		if configShowYAML {
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("encoding config: %w", err)
			}
			fmt.Print(string(out))
			return nil
		}

		fmt.Println(bold("\n── Allowed Events ──"))
		uris := make([]string, 0, len(cfg.Gateway.AllowedEvents))
		for uri := range cfg.Gateway.AllowedEvents {
			uris = append(uris, uri)
		}
		sort.Strings(uris)

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Event URI", "Relayed As"})
		for _, uri := range uris {
			t.AppendRow(table.Row{uri, cfg.Gateway.AllowedEvents[uri]})
		}
		applyTableFormat(t)
		t.Render()

		fmt.Println(bold("\n── Settings ──"))
		s := table.NewWriter()
		s.SetOutputMirror(os.Stdout)
		s.AppendRows([]table.Row{
			{"environment", cfg.Environment},
			{"gateway.addr", cfg.Gateway.Addr},
			{"gateway.key_cache.ttl", cfg.Gateway.KeyCache.TTL},
			{"queue.type", cfg.Queue.Type},
			{"secrets.type", cfg.Secrets.Type},
			{"consumer.batch_size", cfg.Consumer.BatchSize},
			{"consumer.private_key_name", cfg.Consumer.PrivateKeyName},
			{"downstream.url", orNone(cfg.Downstream.URL)},
			{"service.issuer", cfg.Service.Issuer},
			{"service.audience", cfg.Service.Audience},
			{"service.assertion_ttl", cfg.Service.AssertionTTL},
			{"audit.enabled", cfg.Audit.Enabled},
			{"reporting.sentry.dsn", orNone(cfg.Reporting.Sentry.DSN)},
		})
		applyTableFormat(s)
		s.Render()
		return nil
	},
}

func redact(cfg config.Config) *config.Config {
	if cfg.Gateway.AdminSecret != "" {
		cfg.Gateway.AdminSecret = redacted
	}
	if cfg.Reporting.Sentry.DSN != "" {
		cfg.Reporting.Sentry.DSN = redacted
	}
	if len(cfg.Secrets.Config) > 0 {
		values := make(map[string]any, len(cfg.Secrets.Config))
		for k, v := range cfg.Secrets.Config {
			values[k] = v
		}
		if _, ok := values["values"]; ok {
			values["values"] = redacted
		}
		cfg.Secrets.Config = values
	}
	return &cfg
}

func orNone(s string) string {
	if s == "" {
		return faint("(none)")
	}
	return s
}

func init() {
	configCmd.AddCommand(configShowCmd)

	configShowCmd.Flags().BoolVar(&configShowYAML, "yaml", false, "print the configuration as YAML")
}
