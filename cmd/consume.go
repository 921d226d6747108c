package cmd

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/darmiel/fxrelay/internal/api"
)

var (
	consumeOnce bool
	consumeAddr string
)

var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Run the queue consumer",
	Long: `Drains the configured queue and calls the downstream mutation for every record.
Successful records are acknowledged, failed ones are released for redelivery.
Health, metrics and the admin routes are served on consumer.metrics_addr.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := f.LoadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if consumeAddr != "" {
			cfg.Consumer.MetricsAddr = consumeAddr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rt, err := f.BuildRuntime(ctx, cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		w, err := rt.Worker()
		if err != nil {
			return fmt.Errorf("building worker: %w", err)
		}

		if consumeOnce {
			report, err := w.ProcessOnce(ctx)
			if err != nil {
				return err
			}
			log.Info().
				Int("received", report.Received).
				Int("succeeded", report.Succeeded).
				Int("failed", report.Failed).
				Msg("Processed a single batch")
			return nil
		}

		opts := rt.APIOptions()
		opts.Worker = w
		server := &http.Server{
			Addr:              cfg.Consumer.MetricsAddr,
			Handler:           api.NewServer(opts).Routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		serverDone := make(chan error, 1)
		go func() {
			serverDone <- listenUntilDone(ctx, server)
		}()

		if err := w.Run(ctx); err != nil {
			stop()
			<-serverDone
			return err
		}
		return <-serverDone
	},
}

func init() {
	rootCmd.AddCommand(consumeCmd)

	consumeCmd.Flags().BoolVar(&consumeOnce, "once", false, "process a single batch and exit")
	consumeCmd.Flags().StringVar(&consumeAddr, "addr", "", "address of the health and metrics server (overrides consumer.metrics_addr)")
}
