package cmd

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var debugAssertionRaw bool

var debugAssertionCmd = &cobra.Command{
	Use:   "assertion USER-ID",
	Short: "Issue a downstream assertion for a user",
	Long: `Issues the assertion the consumer would send to the downstream API for USER-ID,
using the private key from the configured secret store.`,
	Example: `  fxrelay debug assertion -c fxrelay.yaml 0f4e1a9c2b`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := f.LoadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		rt, err := f.BuildRuntime(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		log.Debug().Str("key", cfg.Consumer.PrivateKeyName).Msg("Issuing assertion...")
		a, err := rt.AssertionIssuer().Issue(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("issuing assertion: %w", err)
		}

		if debugAssertionRaw {
			fmt.Println(a.Token)
			return nil
		}
		fmt.Println(bold("\n── Assertion ──"))
		fmt.Printf("  %s:     %s\n", faint("Subject"), a.Subject)
		fmt.Printf("  %s:      %s\n", faint("Issuer"), cfg.Service.Issuer)
		fmt.Printf("  %s:    %s\n", faint("Audience"), cfg.Service.Audience)
		fmt.Printf("  %s:     %s (in %s)\n", faint("Expires"),
			a.ExpiresAt.Format(time.RFC3339), time.Until(a.ExpiresAt).Round(time.Second))
		fmt.Printf("  %s: %s\n", faint("Fingerprint"), a.Fingerprint)
		fmt.Printf("\n%s\n", a.Token)
		return nil
	},
}

func init() {
	debugCmd.AddCommand(debugAssertionCmd)

	debugAssertionCmd.Flags().BoolVarP(&debugAssertionRaw, "raw", "r", false, "print only the token")
}
