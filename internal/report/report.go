// Package report forwards processing errors to an error tracker.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog/log"

	"github.com/darmiel/fxrelay/internal/buildinfo"
	"github.com/darmiel/fxrelay/internal/config"
	"github.com/darmiel/fxrelay/internal/core"
)

// LogReporter only logs captured errors. It is used when no DSN is configured.
type LogReporter struct{}

var _ core.Reporter = LogReporter{}

func (LogReporter) Capture(ctx context.Context, err error, tags map[string]string) {
	event := log.Ctx(ctx).Error().Err(err)
	for k, v := range tags {
		event = event.Str(k, v)
	}
	event.Msg("captured error")
}

func (LogReporter) Flush(time.Duration) bool {
	return true
}

// SentryReporter sends captured errors to Sentry and logs them.
type SentryReporter struct {
	hub *sentry.Hub
}

var _ core.Reporter = (*SentryReporter)(nil)

func NewSentryReporter(client *sentry.Client) *SentryReporter {
	return &SentryReporter{hub: sentry.NewHub(client, sentry.NewScope())}
}

func (r *SentryReporter) Capture(ctx context.Context, err error, tags map[string]string) {
	LogReporter{}.Capture(ctx, err, tags)

	r.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		r.hub.CaptureException(err)
	})
}

func (r *SentryReporter) Flush(timeout time.Duration) bool {
	return r.hub.Flush(timeout)
}

// Build creates the reporter described by the reporting config.
func Build(cfg config.ReportingConfig, environment string) (core.Reporter, error) {
	if cfg.Sentry.DSN == "" {
		return LogReporter{}, nil
	}
	release := cfg.Sentry.Release
	if release == "" {
		release = "fxrelay@" + buildinfo.Version
	}
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:         cfg.Sentry.DSN,
		Environment: environment,
		Release:     release,
	})
	if err != nil {
		return nil, fmt.Errorf("creating sentry client: %w", err)
	}
	return NewSentryReporter(client), nil
}
