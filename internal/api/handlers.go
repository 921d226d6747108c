package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/darmiel/fxrelay/internal/api/presenter"
	"github.com/darmiel/fxrelay/internal/buildinfo"
	"github.com/darmiel/fxrelay/internal/service"
)

// handleHealth responds with a simple OK status to indicate the server is healthy.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleInfo responds with service information including version and commit hash.
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	presenter.JSON(w, r, buildinfo.GetBuildInfo(), http.StatusOK)
}

// handleEvents authenticates an identity provider webhook and enqueues its events.
// The request body is not read, everything is carried by the bearer token.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	result, err := s.webhooks.HandleWebhook(ctx, r.Header.Get("Authorization"))
	if err != nil {
		status := http.StatusInternalServerError
		var httpErr service.HTTPError
		if errors.As(err, &httpErr) {
			status = httpErr.StatusCode
		}
		s.metrics.IncWebhookRequest(strconv.Itoa(status))
		presenter.Err(w, r, err)
		return
	}

	kinds := make([]string, 0, len(result.Events))
	for _, kind := range result.Events {
		kinds = append(kinds, string(kind))
	}
	logger.UpdateContext(func(c zerolog.Context) zerolog.Context {
		return c.Str("sub", result.Subject).
			Strs("events", kinds).
			Int("events_sent", result.Sent).
			Int("events_total", result.Total)
	})

	s.metrics.IncWebhookRequest(strconv.Itoa(http.StatusOK))
	presenter.Message(w, r, result.Message, http.StatusOK)
}
