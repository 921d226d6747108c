package cmd

import (
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/darmiel/fxrelay/pkg/client"
)

var auditLogOpts client.ListAuditsOpts

// auditLogCmd represents the audit log command
var auditLogCmd = &cobra.Command{
	Use:   "log",
	Short: "Retrieve and display audit log entries",
	Example: `  fxrelay audit log -n 50
  fxrelay audit log --subject 0f4e1a9c2b --action event.dispatch`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		log.Debug().Msg("Fetching audit log...")
		audits, correlation, err := cli.ListAudits(cmd.Context(), auditLogOpts)
		if err != nil {
			return logError(err, correlation, "failed to retrieve audit log")
		}

		log.Info().Msgf("Retrieved %d audit entries", len(audits))

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{
			"Time", "ID", "Action", "Subject", "Events", "Mutation", "OK", "Error",
		})

		for _, e := range audits {
			status := greenCheck
			if !e.Success {
				status = redCross
			}

			sub := faint("(unknown)")
			if e.SubjectID != "" {
				sub = truncate(e.SubjectID, 35)
			}

			t.AppendRow(table.Row{
				e.Time.Local().Format(time.RFC3339),
				e.ID,
				e.Action,
				sub,
				e.Events,
				e.Mutation,
				status,
				truncate(e.Error, 60),
			})
		}

		applyTableFormat(t)
		t.Render()
		return nil
	},
}

func init() {
	auditCmd.AddCommand(auditLogCmd)

	auditLogCmd.Flags().UintVarP(&auditLogOpts.Limit, "limit", "n", 25, "Number of audit entries to retrieve")
	auditLogCmd.Flags().StringVar(&auditLogOpts.SubjectID, "subject", "", "Only show entries of this user")
	auditLogCmd.Flags().StringVar(&auditLogOpts.Action, "action", "", "Only show entries of this action (webhook.receive, event.dispatch)")
	auditLogCmd.Flags().StringVar(&auditLogOpts.Fingerprint, "fingerprint", "", "Only show entries of this assertion fingerprint")
}
