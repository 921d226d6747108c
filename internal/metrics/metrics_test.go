package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.IncEnqueued("user_delete", true)
	m.IncEnqueued("user_delete", true)
	m.IncEnqueued("user_delete", false)
	m.IncDispatched("profile_update", false)
	m.IncVerifyFailure("signature")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.EventsEnqueued.WithLabelValues("user_delete", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsEnqueued.WithLabelValues("user_delete", OutcomeFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsDispatched.WithLabelValues("profile_update", OutcomeFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.VerifyFailures.WithLabelValues("signature")))
}

func TestMetrics_Nil(t *testing.T) {
	var m *Metrics

	// nil metrics must be usable everywhere
	m.IncWebhookRequest("200")
	m.IncEnqueued("user_delete", true)
	m.ObserveMutation("deleteUser", time.Second)
	m.ObserveBatch(3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.IncWebhookRequest("200")
	m.ObserveMutation("deleteUser", 20*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `fxrelay_webhook_requests_total{status="200"} 1`)
	assert.Contains(t, body, "fxrelay_mutation_duration_seconds_bucket")
	assert.Contains(t, body, "go_goroutines")
}
