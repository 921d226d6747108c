package api

import (
	"context"
	"net/http"

	"github.com/darmiel/fxrelay/internal/api/middleware"
	"github.com/darmiel/fxrelay/internal/core"
	"github.com/darmiel/fxrelay/internal/metrics"
	"github.com/darmiel/fxrelay/internal/service"
	"github.com/darmiel/fxrelay/internal/worker"
)

// WebhookHandler handles the Authorization header of an incoming webhook.
type WebhookHandler interface {
	HandleWebhook(ctx context.Context, authorization string) (*service.WebhookResult, error)
}

// AuditReader is implemented by auditors that keep their entries queryable.
type AuditReader interface {
	GetRecent(limit int) []core.AuditEntry
	Find(filter func(entry core.AuditEntry) bool) []core.AuditEntry
}

// WorkerController exposes an in-process queue consumer.
type WorkerController interface {
	Status() worker.Status
	ProcessOnce(ctx context.Context) (worker.BatchReport, error)
}

type Options struct {
	// Webhooks is nil for a consumer-only server.
	Webhooks WebhookHandler

	// Audits is nil if the configured auditor cannot be queried.
	Audits AuditReader

	// Worker is nil if no consumer runs in this process.
	Worker WorkerController

	Metrics *metrics.Metrics

	// AdminSecret signs admin session tokens. Empty disables the admin routes.
	AdminSecret []byte
}

type Server struct {
	webhooks    WebhookHandler
	audits      AuditReader
	worker      WorkerController
	metrics     *metrics.Metrics
	adminSecret []byte
}

func NewServer(opts Options) *Server {
	return &Server{
		webhooks:    opts.Webhooks,
		audits:      opts.Audits,
		worker:      opts.Worker,
		metrics:     opts.Metrics,
		adminSecret: opts.AdminSecret,
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	// public routes
	mux.HandleFunc("GET "+HealthCheckRoute, s.handleHealth)
	mux.HandleFunc("GET "+InfoRoute, s.handleInfo)
	mux.Handle("GET "+MetricsRoute, s.metrics.Handler())

	if s.webhooks != nil {
		mux.HandleFunc("POST "+EventsRoute, s.handleEvents)
	}

	// admin routes
	if len(s.adminSecret) > 0 {
		adminMux := http.NewServeMux()
		adminMux.HandleFunc("GET "+ListAuditsRoute, s.handleAdminAudit)
		adminMux.HandleFunc("GET "+WorkerStatusRoute, s.handleWorkerStatus)
		adminMux.HandleFunc("POST "+WorkerPollRoute, s.handleWorkerPoll)
		mux.Handle(AdminParent, middleware.AdminAuth(s.adminSecret)(adminMux))
	}

	return middleware.RecoverMiddleware(
		middleware.CorrelationIDMiddleware(
			middleware.LoggingMiddleware(
				mux)))
}
