package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/darmiel/fxrelay/internal/core"
)

var fingerprintCmd = &cobra.Command{
	Use:     "fingerprint TOKEN",
	Aliases: []string{"fp"},
	Short:   `Calculate the fingerprint of an assertion`,
	Long: `Calculates the fingerprint of a downstream assertion (SHA256 -> Base64).
This is the value stored in the audit log in the 'assertion_fingerprint' field.`,
	Example: `  # Calculate the fingerprint of an assertion
  fxrelay fingerprint eyJhbGciOi...

  # Calculate the fingerprint of an assertion from stdin
  fxrelay debug assertion -r 0f4e1a9c2b | fxrelay fingerprint -`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := readTokenArg(args[0])
		if err != nil {
			return err
		}
		fmt.Println(core.Fingerprint(token))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fingerprintCmd)
}

// readTokenArg returns arg, or the trimmed stdin if arg is "-".
func readTokenArg(arg string) (string, error) {
	token := arg
	if arg == "-" {
		log.Debug().Msg("Reading token from stdin")
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read token from stdin: %w", err)
		}
		token = string(data)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", fmt.Errorf("token cannot be empty")
	}
	return token, nil
}
