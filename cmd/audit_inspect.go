package cmd

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/darmiel/fxrelay/pkg/client"
)

var auditInspectCmd = &cobra.Command{
	Use:   "inspect ID",
	Short: "Show full details of a specific audit log entry",
	Long: `Shows every audit entry with the given id. Webhooks are audited under their
correlation id, dispatches under their queue message id.`,
	Example: `  fxrelay audit inspect cs1l5gq9c3ql0f4n2ho0`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		if id == "" {
			return fmt.Errorf("id cannot be empty")
		}

		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		log.Debug().Msgf("Retrieving entries with id '%s'...", id)
		audits, correlation, err := cli.ListAudits(cmd.Context(), client.ListAuditsOpts{ID: id})
		if err != nil {
			return logError(err, correlation, "failed to retrieve audit log entry")
		}
		if len(audits) == 0 {
			log.Warn().Str("id", id).Msg("no audit log entries found")
			return nil
		}

		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()

		printKV := func(key string, val any) {
			fmt.Printf("  %-26s %v\n", faint(key)+":", val)
		}

		printMap := func(m map[string]any) {
			if len(m) == 0 {
				fmt.Printf("       %s\n", faint("(none)"))
				return
			}
			keys := make([]string, 0, len(m))
			for k := range m {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			for _, k := range keys {
				fmt.Printf("       %-16s %v\n", faint(k)+":", m[k])
			}
		}

		for _, entry := range audits {
			status := green("success")
			if !entry.Success {
				status = red("failed")
			}

			fmt.Println(bold("\n── Audit Entry ──"))
			printKV("ID", entry.ID)
			printKV("Time", entry.Time.Local().Format(time.RFC1123))
			printKV("Action", entry.Action)
			printKV("Outcome", status)
			if entry.Error != "" {
				printKV("Error Message", red(entry.Error))
			}

			fmt.Println(bold("\n── Identity ──"))
			if entry.SubjectID != "" {
				printKV("Subject", entry.SubjectID)
			} else {
				printKV("Subject", faint("(unknown)"))
			}
			if entry.Issuer != "" {
				printKV("Issuer", entry.Issuer)
			}

			fmt.Println(bold("\n── Events ──"))
			if len(entry.Events) > 0 {
				kinds := make([]string, 0, len(entry.Events))
				for _, k := range entry.Events {
					kinds = append(kinds, string(k))
				}
				printKV("Kinds", strings.Join(kinds, ", "))
			} else {
				printKV("Kinds", faint("(none)"))
			}
			if entry.Mutation != "" {
				printKV("Mutation", bold(entry.Mutation))
			}
			if entry.AssertionFingerprint != "" {
				printKV("Fingerprint", entry.AssertionFingerprint)
			}
			printKV("Metadata", "")
			printMap(entry.Metadata)
		}
		fmt.Println()

		return nil
	},
}

func init() {
	auditCmd.AddCommand(auditInspectCmd)
}
