package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/darmiel/fxrelay/internal/api"
	"github.com/darmiel/fxrelay/internal/assertion"
	"github.com/darmiel/fxrelay/internal/audit"
	"github.com/darmiel/fxrelay/internal/cliconfig"
	"github.com/darmiel/fxrelay/internal/config"
	"github.com/darmiel/fxrelay/internal/core"
	"github.com/darmiel/fxrelay/internal/dispatch"
	"github.com/darmiel/fxrelay/internal/events"
	"github.com/darmiel/fxrelay/internal/graphql"
	"github.com/darmiel/fxrelay/internal/keys"
	"github.com/darmiel/fxrelay/internal/logging"
	"github.com/darmiel/fxrelay/internal/metrics"
	"github.com/darmiel/fxrelay/internal/queue"
	"github.com/darmiel/fxrelay/internal/report"
	"github.com/darmiel/fxrelay/internal/secrets"
	"github.com/darmiel/fxrelay/internal/service"
	"github.com/darmiel/fxrelay/internal/verifier"
	"github.com/darmiel/fxrelay/internal/worker"
	"github.com/darmiel/fxrelay/pkg/client"
)

type Factory struct {
	// RemoteAddr is the address of the fxrelay server to connect to.
	RemoteAddr string

	// ConfigPath is the service configuration. Empty runs with defaults.
	ConfigPath string
}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) serverAddr() (string, error) {
	server := f.RemoteAddr // prio 1: command-line flag
	if server == "" {
		server = viper.GetString(ServerAddrKey) // prio 2: config/env
	}
	if server == "" {
		return "", fmt.Errorf("server address not configured (use --server or set FXRELAY_ADDR)")
	}
	return server, nil
}

// GetClient returns a HTTP client for remote operations, authenticated if a session was saved.
func (f *Factory) GetClient() (*client.Client, error) {
	server, err := f.serverAddr()
	if err != nil {
		return nil, err
	}

	var token string
	if cfg, err := cliconfig.Load(); err == nil {
		cred, err := cfg.GetCredential(server)
		switch {
		case err == nil && cred.Expired(time.Now()):
			log.Warn().Msg("saved session has expired, run 'fxrelay login' again")
		case err == nil:
			token = cred.Token // token prio 1: saved credential
		case !errors.Is(err, cliconfig.ErrCredentialNotFound):
			return nil, err
		}
	}

	if envToken := viper.GetString("token"); envToken != "" { // token prio 2: env var
		token = envToken
	}

	return client.New(server, client.WithAuthToken(token)), nil
}

func (f *Factory) bindConfigFlag(flags *pflag.FlagSet) {
	flags.StringVarP(&f.ConfigPath, "config", "c", "", "The fxrelay service config file to use")
	_ = viper.BindPFlag(ConfigPathKey, flags.Lookup("config"))
}

// LoadConfig loads the service configuration, or the defaults if no file was given.
func (f *Factory) LoadConfig() (*config.Config, error) {
	path := f.ConfigPath
	if path == "" {
		path = viper.GetString(ConfigPathKey)
	}
	if path == "" {
		log.Debug().Msg("no config file given, using defaults")
		return config.Default(), nil
	}
	return config.Load(path)
}

// Runtime holds everything built from a service configuration.
type Runtime struct {
	Config   *config.Config
	Metrics  *metrics.Metrics
	Reporter core.Reporter
	Auditor  core.Auditor
	Queue    core.Queue
	Secrets  core.SecretStore
}

func (f *Factory) BuildRuntime(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	if cfg.Queue.Type == queue.TypeRedis {
		redis.SetLogger(logging.ContextPrintfLogger{
			PrintfLogger: logging.NewPrintfLogger(log.With().Str("component", "redis").Logger(), zerolog.DebugLevel),
		})
	}

	reporter, err := report.Build(cfg.Reporting, cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("building reporter: %w", err)
	}

	auditor, err := audit.Build(cfg.Audit)
	if err != nil {
		return nil, fmt.Errorf("building auditor: %w", err)
	}

	log.Info().Str("type", cfg.Secrets.Type).Msg("Initializing secret store...")
	store, err := secrets.Build(ctx, cfg.Secrets)
	if err != nil {
		_ = auditor.Close()
		return nil, fmt.Errorf("building secret store: %w", err)
	}

	log.Info().Str("type", cfg.Queue.Type).Msg("Initializing queue...")
	q, err := queue.Build(ctx, cfg.Queue)
	if err != nil {
		_ = auditor.Close()
		return nil, fmt.Errorf("building queue: %w", err)
	}

	return &Runtime{
		Config:   cfg,
		Metrics:  metrics.New(),
		Reporter: reporter,
		Auditor:  auditor,
		Queue:    q,
		Secrets:  store,
	}, nil
}

// Verifier builds the webhook token verifier, with the key cache if configured.
func (r *Runtime) Verifier() *verifier.Verifier {
	gw := r.Config.Gateway
	var resolver keys.PublicKeyResolver = keys.NewResolver(&http.Client{Timeout: gw.HTTPTimeout})
	if gw.KeyCache.TTL > 0 {
		resolver = keys.WithCache(resolver, gw.KeyCache.TTL, gw.KeyCache.MaxEntries)
	}
	return verifier.New(resolver)
}

func (r *Runtime) EventService() (*service.EventService, error) {
	allow, err := events.ParseAllowList(r.Config.Gateway.AllowedEvents)
	if err != nil {
		return nil, err
	}
	return service.NewEventService(r.Verifier(), r.Queue, service.EventServiceOptions{
		AllowList:   allow,
		Concurrency: r.Config.Gateway.MaxConcurrency,
		Auditor:     r.Auditor,
		Reporter:    r.Reporter,
		Metrics:     r.Metrics,
	}), nil
}

func (r *Runtime) AssertionIssuer() *assertion.Issuer {
	return assertion.NewIssuer(r.Secrets, r.Config.Consumer.PrivateKeyName, assertion.Options{
		Issuer:   r.Config.Service.Issuer,
		Audience: r.Config.Service.Audience,
		TTL:      r.Config.Service.AssertionTTL,
	})
}

func (r *Runtime) Worker() (*worker.Worker, error) {
	if err := r.Config.ValidateConsumer(); err != nil {
		return nil, err
	}
	downstream := graphql.NewClient(r.Config.Downstream.URL, r.Config.Downstream.Timeout)
	dispatcher := dispatch.New(r.AssertionIssuer(), downstream, dispatch.Options{
		TransferSubHeader: r.Config.Downstream.TransferSubHeader,
		Concurrency:       r.Config.Consumer.Concurrency,
		Metrics:           r.Metrics,
	})
	return worker.New(r.Queue, dispatcher, worker.Options{
		BatchSize:    r.Config.Consumer.BatchSize,
		PollInterval: r.Config.Consumer.PollInterval,
		Auditor:      r.Auditor,
		Reporter:     r.Reporter,
		Metrics:      r.Metrics,
	}), nil
}

// APIOptions wires the admin surface. Audits are only served by a queryable auditor.
func (r *Runtime) APIOptions() api.Options {
	opts := api.Options{
		Metrics:     r.Metrics,
		AdminSecret: []byte(r.Config.Gateway.AdminSecret),
	}
	if reader, ok := r.Auditor.(api.AuditReader); ok {
		opts.Audits = reader
	}
	return opts
}

func (r *Runtime) Close() {
	if !r.Reporter.Flush(2 * time.Second) {
		log.Warn().Msg("not every error report was delivered")
	}
	if err := r.Queue.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close queue")
	}
	if err := r.Auditor.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close auditor")
	}
}
