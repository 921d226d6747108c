package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/darmiel/fxrelay/internal/api"
	"github.com/darmiel/fxrelay/internal/queue"
)

var (
	serveAddr    string
	serveConsume bool
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook gateway",
	Long: `Runs the HTTP server receiving identity provider webhooks on POST /events.
Every relayed event is put on the configured queue. With --consume the queue consumer
runs in the same process, which is required for the in-memory queue.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := f.LoadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if serveAddr != "" {
			cfg.Gateway.Addr = serveAddr
		}
		if cfg.Queue.Type == queue.TypeMemory && !serveConsume {
			log.Warn().Msg("the memory queue is only drained by an in-process consumer, consider --consume")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rt, err := f.BuildRuntime(ctx, cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		svc, err := rt.EventService()
		if err != nil {
			return fmt.Errorf("building event service: %w", err)
		}

		opts := rt.APIOptions()
		opts.Webhooks = svc

		workerDone := make(chan error, 1)
		if serveConsume {
			w, err := rt.Worker()
			if err != nil {
				return fmt.Errorf("building worker: %w", err)
			}
			opts.Worker = w
			go func() {
				workerDone <- w.Run(ctx)
			}()
		} else {
			close(workerDone)
		}

		server := &http.Server{
			Addr:              cfg.Gateway.Addr,
			Handler:           api.NewServer(opts).Routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		if err := listenUntilDone(ctx, server); err != nil {
			return err
		}

		if err := <-workerDone; err != nil {
			return fmt.Errorf("worker: %w", err)
		}
		log.Info().Msg("Server exited")
		return nil
	},
}

// listenUntilDone serves until ctx is done and then shuts the server down gracefully.
func listenUntilDone(ctx context.Context, server *http.Server) error {
	serveErr := make(chan error, 1)
	go func() {
		log.Info().Msgf("Starting server on %s...", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server crashed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "address to listen on (overrides gateway.addr)")
	serveCmd.Flags().BoolVar(&serveConsume, "consume", false, "run the queue consumer in this process")
}
