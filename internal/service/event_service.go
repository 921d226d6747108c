package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/darmiel/fxrelay/internal/core"
	"github.com/darmiel/fxrelay/internal/events"
	"github.com/darmiel/fxrelay/internal/keys"
	"github.com/darmiel/fxrelay/internal/metrics"
	"github.com/darmiel/fxrelay/internal/verifier"
)

// EventService authenticates identity provider webhooks and puts one queue message
// per relayed event on the queue.
type EventService struct {
	verifier    TokenVerifier
	allow       events.AllowList
	producer    core.Producer
	auditor     core.Auditor
	reporter    core.Reporter
	metrics     *metrics.Metrics
	concurrency int
	now         func() time.Time
}

type EventServiceOptions struct {
	AllowList events.AllowList

	// Concurrency bounds the parallel enqueues of one webhook. Zero or less means unbounded.
	Concurrency int

	Auditor  core.Auditor
	Reporter core.Reporter
	Metrics  *metrics.Metrics
}

func NewEventService(v TokenVerifier, producer core.Producer, opts EventServiceOptions) *EventService {
	if opts.AllowList == nil {
		opts.AllowList = events.DefaultAllowList()
	}
	return &EventService{
		verifier:    v,
		allow:       opts.AllowList,
		producer:    producer,
		auditor:     opts.Auditor,
		reporter:    opts.Reporter,
		metrics:     opts.Metrics,
		concurrency: opts.Concurrency,
		now:         time.Now,
	}
}

// HandleWebhook processes the Authorization header value of an incoming webhook.
// Returned errors are HTTPErrors carrying a message safe to show to the caller.
func (s *EventService) HandleWebhook(ctx context.Context, authorization string) (*WebhookResult, error) {
	logger := log.Ctx(ctx)

	auditEntry := core.AuditEntry{
		ID:     core.CorrelationID(ctx),
		Time:   s.now(),
		Action: "webhook.receive",
	}
	defer func() {
		if s.auditor == nil {
			return
		}
		if err := s.auditor.Log(auditEntry); err != nil {
			logger.Error().Err(err).Msg("failed to write audit log entry for webhook")
		}
	}()

	if authorization == "" {
		auditEntry.Error = ErrMissingAuthorization.Error()
		return nil, httpError(http.StatusBadRequest, ErrMissingAuthorization)
	}
	scheme, token, _ := strings.Cut(authorization, " ")
	token = strings.TrimSpace(token)
	if !strings.EqualFold(scheme, "Bearer") || token == "" {
		auditEntry.Error = ErrInvalidAuthType.Error()
		return nil, httpError(http.StatusUnauthorized, ErrInvalidAuthType)
	}

	payload, err := s.verifier.Verify(ctx, token)
	if err != nil {
		reason, safe := classifyVerifyError(err)
		s.metrics.IncVerifyFailure(reason)
		logger.Warn().Err(err).Str("reason", reason).Msg("webhook token rejected")
		auditEntry.Error = err.Error()
		return nil, httpError(http.StatusUnauthorized, safe)
	}
	auditEntry.Issuer = payload.Issuer
	auditEntry.SubjectID = payload.Subject

	relayEvents := events.Extract(payload, s.allow, s.now())
	result := &WebhookResult{
		Total:   len(relayEvents),
		Subject: payload.Subject,
	}
	for _, ev := range relayEvents {
		result.Events = append(result.Events, ev.Kind)
	}
	auditEntry.Events = result.Events

	if len(relayEvents) == 0 {
		logger.Info().
			Strs("event_types", payload.Events.Types()).
			Msg("webhook carried no relayed events")
		result.Message = NoValidEventsMessage
		auditEntry.Success = true
		return result, nil
	}

	result.Sent = s.enqueueAll(ctx, relayEvents)
	auditEntry.Metadata = map[string]any{"sent": result.Sent, "total": result.Total}
	if result.Sent == 0 {
		auditEntry.Error = ErrEnqueueFailed.Error()
		return nil, httpError(http.StatusInternalServerError, ErrEnqueueFailed)
	}

	result.Message = SummaryMessage(result.Sent, result.Total)
	auditEntry.Success = true
	return result, nil
}

// enqueueAll sends every event independently and waits for all of them to settle.
func (s *EventService) enqueueAll(ctx context.Context, relayEvents []core.RelayEvent) int {
	var sent atomic.Int32

	var g errgroup.Group
	if s.concurrency > 0 {
		g.SetLimit(s.concurrency)
	}
	for _, ev := range relayEvents {
		g.Go(func() error {
			err := s.enqueue(ctx, ev)
			s.metrics.IncEnqueued(string(ev.Kind), err == nil)
			if err != nil {
				log.Ctx(ctx).Error().Err(err).
					Str("event", string(ev.Kind)).
					Str("user_id", ev.SubjectID).
					Msg("failed to enqueue event")
				if s.reporter != nil {
					s.reporter.Capture(ctx, err, map[string]string{
						"user_id":        ev.SubjectID,
						"event":          string(ev.Kind),
						"correlation_id": core.CorrelationID(ctx),
					})
				}
				return nil
			}
			sent.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	return int(sent.Load())
}

func (s *EventService) enqueue(ctx context.Context, ev core.RelayEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	if err := s.producer.Send(ctx, body); err != nil {
		return fmt.Errorf("sending %s event: %w", ev.Kind, err)
	}
	return nil
}

// SummaryMessage describes how many of the relayed events were enqueued.
func SummaryMessage(sent, total int) string {
	msg := fmt.Sprintf("Successfully sent %d out of %d events.", sent, total)
	if sent < total {
		msg += " Review logs for information about failed events."
	}
	return msg
}

// classifyVerifyError maps a verification error to a metric reason and a message safe
// to return to the caller.
func classifyVerifyError(err error) (string, error) {
	switch {
	case errors.Is(err, verifier.ErrDecode):
		return "decode", errTokenUndecodable
	case errors.Is(err, verifier.ErrInvalidPayloadShape):
		return "payload_shape", errInvalidTokenFormat
	case errors.Is(err, verifier.ErrMissingIssuerOrKid):
		return "missing_issuer_or_kid", errInvalidToken
	case errors.Is(err, keys.ErrKeyNotFound):
		return "key_not_found", errInvalidToken
	case errors.Is(err, keys.ErrIssuerUnreachable):
		return "issuer_unreachable", errInvalidToken
	case errors.Is(err, verifier.ErrSignatureInvalid):
		return "signature", errInvalidToken
	default:
		return "unknown", errInvalidToken
	}
}

