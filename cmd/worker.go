package cmd

import (
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Inspect and control the queue consumer of a remote server",
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
