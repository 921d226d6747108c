// Package worker drains the queue and dispatches its records downstream.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/darmiel/fxrelay/internal/config"
	"github.com/darmiel/fxrelay/internal/core"
	"github.com/darmiel/fxrelay/internal/dispatch"
	"github.com/darmiel/fxrelay/internal/metrics"
)

// BatchDispatcher settles every message of a batch.
type BatchDispatcher interface {
	DispatchBatch(ctx context.Context, msgs []core.Message) []dispatch.Result
}

type Options struct {
	BatchSize    int
	PollInterval time.Duration

	Auditor  core.Auditor
	Reporter core.Reporter
	Metrics  *metrics.Metrics
}

type Worker struct {
	consumer   core.Consumer
	dispatcher BatchDispatcher
	opts       Options

	mu     sync.RWMutex
	status Status
}

// Status reports what the worker has done so far.
type Status struct {
	Running    bool      `json:"running"`
	LastPoll   time.Time `json:"last_poll"`
	LastResult string    `json:"last_result,omitempty"`
	Succeeded  int64     `json:"succeeded"`
	Failed     int64     `json:"failed"`
}

// BatchReport summarizes a single poll.
type BatchReport struct {
	Received  int `json:"received"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

func New(consumer core.Consumer, dispatcher BatchDispatcher, opts Options) *Worker {
	if opts.BatchSize <= 0 {
		opts.BatchSize = config.DefaultBatchSize
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = config.DefaultPollInterval
	}
	return &Worker{
		consumer:   consumer,
		dispatcher: dispatcher,
		opts:       opts,
	}
}

// Run polls until ctx is done. An empty or failed poll waits for the poll interval.
// A batch in progress when ctx is done is still settled before Run returns.
func (w *Worker) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.status.Running {
		w.mu.Unlock()
		return errors.New("worker is already running")
	}
	w.status.Running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.status.Running = false
		w.mu.Unlock()
	}()

	logger := log.Ctx(ctx)
	logger.Info().
		Int("batch_size", w.opts.BatchSize).
		Dur("poll_interval", w.opts.PollInterval).
		Msg("worker started")

	for {
		if ctx.Err() != nil {
			logger.Info().Msg("worker stopped")
			return nil
		}

		report, err := w.ProcessOnce(ctx)
		if err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("failed to receive from queue")
		}
		// a batch that failed completely waits as well, the downstream is likely unavailable
		if err == nil && report.Succeeded > 0 {
			continue
		}

		select {
		case <-ctx.Done():
		case <-time.After(w.opts.PollInterval):
		}
	}
}

// ProcessOnce receives one batch, dispatches it and settles every message:
// successes are acknowledged, failures are negatively acknowledged and reported.
// Only the receive observes ctx cancellation. Received messages are always dispatched
// and settled, including those a failed receive returned along with its error.
func (w *Worker) ProcessOnce(ctx context.Context) (BatchReport, error) {
	msgs, recvErr := w.consumer.Receive(ctx, w.opts.BatchSize)
	w.setPolled(recvErr)
	if recvErr != nil {
		recvErr = fmt.Errorf("receiving batch: %w", recvErr)
		if len(msgs) == 0 {
			return BatchReport{}, recvErr
		}
	}
	w.opts.Metrics.ObserveBatch(len(msgs))

	report := BatchReport{Received: len(msgs)}
	if len(msgs) == 0 {
		return report, nil
	}

	ctx = context.WithoutCancel(ctx)

	results := w.dispatcher.DispatchBatch(ctx, msgs)

	var succeeded []core.Message
	for _, res := range results {
		w.audit(ctx, res)
		kind := eventKind(res)
		w.opts.Metrics.IncDispatched(kind, !res.Failed())

		if !res.Failed() {
			succeeded = append(succeeded, res.Message)
			continue
		}
		report.Failed++
		w.handleFailure(ctx, res, kind)
	}

	if len(succeeded) > 0 {
		if err := w.consumer.Ack(ctx, succeeded...); err != nil {
			log.Ctx(ctx).Error().Err(err).Int("count", len(succeeded)).Msg("failed to acknowledge messages")
		}
	}
	report.Succeeded = len(succeeded)

	w.mu.Lock()
	w.status.Succeeded += int64(report.Succeeded)
	w.status.Failed += int64(report.Failed)
	w.mu.Unlock()

	log.Ctx(ctx).Info().
		Int("received", report.Received).
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Msg("batch processed")
	return report, recvErr
}

func (w *Worker) handleFailure(ctx context.Context, res dispatch.Result, kind string) {
	log.Ctx(ctx).Error().Err(res.Err).
		Str("message_id", res.Message.ID).
		Int("receive_count", res.Message.ReceiveCount).
		Str("event", kind).
		Msg("failed to process record")

	if w.opts.Reporter != nil {
		tags := map[string]string{
			"message_id":    res.Message.ID,
			"event":         kind,
			"receive_count": strconv.Itoa(res.Message.ReceiveCount),
		}
		if ev := res.Outcome.Event; ev != nil {
			tags["user_id"] = ev.SubjectID
		}
		w.opts.Reporter.Capture(ctx, res.Err, tags)
	}
	if err := w.consumer.Nack(ctx, res.Message); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("message_id", res.Message.ID).Msg("failed to release message")
	}
}

func (w *Worker) audit(ctx context.Context, res dispatch.Result) {
	if w.opts.Auditor == nil {
		return
	}
	entry := core.AuditEntry{
		ID:                   res.Message.ID,
		Time:                 time.Now(),
		Action:               "event.dispatch",
		Mutation:             res.Outcome.Mutation,
		AssertionFingerprint: res.Outcome.AssertionFingerprint,
		Success:              !res.Failed(),
		Metadata: map[string]any{
			"receive_count": res.Message.ReceiveCount,
			"skipped":       res.Outcome.Skipped,
		},
	}
	if ev := res.Outcome.Event; ev != nil {
		entry.SubjectID = ev.SubjectID
		entry.Events = []core.EventKind{ev.Kind}
	}
	if res.Err != nil {
		entry.Error = res.Err.Error()
	}
	if err := w.opts.Auditor.Log(entry); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to write audit log entry for dispatch")
	}
}

func (w *Worker) setPolled(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status.LastPoll = time.Now()
	if err != nil {
		w.status.LastResult = fmt.Sprintf("failed: %v", err)
	} else {
		w.status.LastResult = "success"
	}
}

func (w *Worker) Status() Status {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.status
}

func eventKind(res dispatch.Result) string {
	if res.Outcome.Event == nil {
		return "malformed"
	}
	return string(res.Outcome.Event.Kind)
}
