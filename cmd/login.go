package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/darmiel/fxrelay/internal/api/middleware"
	"github.com/darmiel/fxrelay/internal/cliconfig"
	"github.com/darmiel/fxrelay/pkg/client"
)

var (
	loginSubject string
	loginTTL     time.Duration
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Create an admin session for a fxrelay server",
	Long: `Signs an admin session token with the server's admin secret (gateway.admin_secret)
and saves it locally for the audit and worker commands.
The secret is read from FXRELAY_ADMIN_SECRET or, with --config, from the service config.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		server, err := f.serverAddr()
		if err != nil {
			return err
		}
		u, err := url.Parse(server)
		if err != nil {
			return fmt.Errorf("parsing server URL: %w", err)
		}

		secret := viper.GetString(AdminSecretKey)
		if secret == "" && (f.ConfigPath != "" || viper.GetString(ConfigPathKey) != "") {
			cfg, err := f.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			secret = cfg.Gateway.AdminSecret
		}
		if secret == "" {
			return errors.New("admin secret not configured (set FXRELAY_ADMIN_SECRET or pass --config)")
		}

		token, err := middleware.IssueAdminToken([]byte(secret), loginSubject, loginTTL)
		if err != nil {
			return fmt.Errorf("signing session token: %w", err)
		}

		// a server without an in-process worker answers 404, which still proves the session
		cli := client.New(server, client.WithAuthToken(token))
		if _, correlation, err := cli.WorkerStatus(cmd.Context()); err != nil {
			var apiErr client.APIError
			if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
				return logError(err, correlation, "server rejected the session")
			}
		}

		cfg, err := cliconfig.Load()
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("loading config: %w", err)
			}
			cfg = &cliconfig.CLIConfig{}
		}
		if err := cfg.SetCredential(server, &cliconfig.Credential{
			Token:     token,
			ExpiresAt: time.Now().Add(loginTTL),
		}); err != nil {
			return err
		}
		if err := cliconfig.Save(cfg); err != nil {
			return logError(err, "", "could not save credentials")
		}

		log.Info().Msgf("%s saved credentials for %s (valid for %s)", greenCheck, bold(u.Host), loginTTL)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)

	loginCmd.Flags().StringVar(&loginSubject, "subject", os.Getenv("USER"), "Name recorded in the session token")
	loginCmd.Flags().DurationVar(&loginTTL, "ttl", 12*time.Hour, "Lifetime of the session")
}
