package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var workerStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the status of the queue consumer",
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		log.Debug().Msg("Retrieving worker status...")
		status, correlation, err := cli.WorkerStatus(cmd.Context())
		if err != nil {
			return logError(err, correlation, "failed to retrieve worker status")
		}

		state := "stopped"
		if status.Running {
			state = color.BlueString("running")
		}

		prefix := ""
		if status.LastResult == "success" {
			prefix = greenCheck
		} else if status.LastResult != "" {
			prefix = redCross
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"State", "Last Poll", "Last Result", "Succeeded", "Failed"})
		t.AppendRow(table.Row{
			state,
			since(status.LastPoll),
			prefix + " " + status.LastResult,
			status.Succeeded,
			fmt.Sprint(status.Failed),
		})
		applyTableFormat(t)
		t.Render()
		return nil
	},
}

func init() {
	workerCmd.AddCommand(workerStatusCmd)
}
