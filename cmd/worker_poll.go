package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var workerPollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Make the queue consumer process one batch now",
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		report, correlation, err := cli.PollWorker(cmd.Context())
		if err != nil {
			return logError(err, correlation, "failed to trigger poll")
		}

		prefix := greenCheck
		if report.Failed > 0 {
			prefix = redCross
		}
		log.Info().
			Int("received", report.Received).
			Int("succeeded", report.Succeeded).
			Int("failed", report.Failed).
			Msgf("%s Batch processed", prefix)
		return nil
	},
}

func init() {
	workerCmd.AddCommand(workerPollCmd)
}
