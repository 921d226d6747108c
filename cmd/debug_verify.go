package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/darmiel/fxrelay/internal/events"
)

var debugVerifyCmd = &cobra.Command{
	Use:   "verify TOKEN",
	Short: "Verify a webhook token and show the events it would relay",
	Long: `Verifies a webhook token against its issuer the way the gateway does and shows
which of its events pass the allow-list. Nothing is enqueued.
Use "-" to read the token from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := readTokenArg(args[0])
		if err != nil {
			return err
		}
		cfg, err := f.LoadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		allow, err := events.ParseAllowList(cfg.Gateway.AllowedEvents)
		if err != nil {
			return err
		}

		rt := &Runtime{Config: cfg}
		payload, err := rt.Verifier().Verify(cmd.Context(), token)
		if err != nil {
			fmt.Printf("%s token rejected: %v\n", redCross, err)
			return BeQuietError{}
		}
		fmt.Printf("%s token verified\n", greenCheck)
		fmt.Printf("  %s:  %s\n", faint("Issuer"), payload.Issuer)
		fmt.Printf("  %s: %s\n", faint("Subject"), payload.Subject)

		relayed := events.Extract(payload, allow, time.Now())
		kinds := make(map[string]string, len(relayed))
		for uri, kind := range allow {
			kinds[uri] = string(kind)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Event URI", "Relayed As"})
		for _, uri := range payload.Events.Types() {
			kind, ok := kinds[uri]
			if !ok {
				kind = faint("(dropped)")
			}
			t.AppendRow(table.Row{uri, kind})
		}
		applyTableFormat(t)
		t.Render()
		fmt.Printf("%d of %d events would be relayed\n", len(relayed), payload.Events.Len())
		return nil
	},
}

func init() {
	debugCmd.AddCommand(debugVerifyCmd)
}
