package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sendCmd = &cobra.Command{
	Use:   "send TOKEN",
	Short: "Post a webhook to a remote fxrelay server",
	Long: `Posts a webhook carrying TOKEN to the server's events route, the way the identity
provider does. Use "-" to read the token from stdin.`,
	Example: `  fxrelay send --server https://relay.example.com eyJhbGciOi...`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := readTokenArg(args[0])
		if err != nil {
			return err
		}
		cli, err := f.GetClient()
		if err != nil {
			return err
		}
		resp, correlation, err := cli.SendEvents(cmd.Context(), token)
		if err != nil {
			return logError(err, correlation, "webhook was rejected")
		}
		fmt.Printf("%s %s %s\n", greenCheck, resp.Message, faint("(correlation: "+correlation+")"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
}
