package cmd

import (
	"github.com/spf13/cobra"
)

// auditCmd represents the audit command
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Check the audit log of a remote server",
	Long: `Reads the audit log of a running server. Requires an admin session (see 'fxrelay login')
and a queryable (memory) auditor on the server.`,
}

func init() {
	rootCmd.AddCommand(auditCmd)
}
