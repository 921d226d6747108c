// Package metrics exposes the relay's prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics provides observability for the gateway and the consumer.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Webhook requests by HTTP status
	WebhookRequests *prometheus.CounterVec

	// Verification failures by reason
	VerifyFailures *prometheus.CounterVec

	// Enqueue outcomes by event kind
	EventsEnqueued *prometheus.CounterVec

	// Dispatch outcomes by event kind
	EventsDispatched *prometheus.CounterVec

	// Downstream mutation latency by mutation name
	MutationLatency *prometheus.HistogramVec

	// Records received per batch
	BatchSize prometheus.Histogram
}

// New creates a Metrics instance registered on its own registry, along with
// the go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		WebhookRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fxrelay_webhook_requests_total",
			Help: "Total webhook requests by response status",
		}, []string{"status"}),

		VerifyFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fxrelay_verify_failures_total",
			Help: "Total webhook token verification failures by reason",
		}, []string{"reason"}),

		EventsEnqueued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fxrelay_events_enqueued_total",
			Help: "Total relay events handed to the queue by kind and outcome",
		}, []string{"event", "outcome"}),

		EventsDispatched: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fxrelay_events_dispatched_total",
			Help: "Total queue records dispatched downstream by kind and outcome",
		}, []string{"event", "outcome"}),

		MutationLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fxrelay_mutation_duration_seconds",
			Help:    "Duration of downstream mutation calls",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"mutation"}),

		BatchSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "fxrelay_consumer_batch_size",
			Help:    "Number of records received per poll",
			Buckets: []float64{0, 1, 2, 5, 10, 15, 20, 25},
		}),
	}
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

func outcome(ok bool) string {
	if ok {
		return OutcomeSuccess
	}
	return OutcomeFailure
}

func (m *Metrics) IncWebhookRequest(status string) {
	if m != nil {
		m.WebhookRequests.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) IncVerifyFailure(reason string) {
	if m != nil {
		m.VerifyFailures.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) IncEnqueued(event string, ok bool) {
	if m != nil {
		m.EventsEnqueued.WithLabelValues(event, outcome(ok)).Inc()
	}
}

func (m *Metrics) IncDispatched(event string, ok bool) {
	if m != nil {
		m.EventsDispatched.WithLabelValues(event, outcome(ok)).Inc()
	}
}

// ObserveMutation records the duration of a downstream call.
func (m *Metrics) ObserveMutation(mutation string, d time.Duration) {
	if m != nil {
		m.MutationLatency.WithLabelValues(mutation).Observe(d.Seconds())
	}
}

func (m *Metrics) ObserveBatch(n int) {
	if m != nil {
		m.BatchSize.Observe(float64(n))
	}
}
