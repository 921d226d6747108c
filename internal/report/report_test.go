package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darmiel/fxrelay/internal/config"
)

type recordingTransport struct {
	events []*sentry.Event
}

func (t *recordingTransport) Configure(sentry.ClientOptions) {}
func (t *recordingTransport) SendEvent(event *sentry.Event) { t.events = append(t.events, event) }
func (t *recordingTransport) Flush(time.Duration) bool { return true }
func (t *recordingTransport) FlushWithContext(context.Context) bool { return true }
func (t *recordingTransport) Close() {}

func TestSentryReporter(t *testing.T) {
	transport := &recordingTransport{}
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:       "https://public@sentry.example.com/1",
		Transport: transport,
	})
	require.NoError(t, err)

	r := NewSentryReporter(client)
	r.Capture(context.Background(), errors.New("downstream failed"), map[string]string{
		"event": "user_delete",
	})
	assert.True(t, r.Flush(time.Second))

	require.Len(t, transport.events, 1)
	assert.Equal(t, "user_delete", transport.events[0].Tags["event"])
	require.NotEmpty(t, transport.events[0].Exception)
	assert.Equal(t, "downstream failed", transport.events[0].Exception[0].Value)
}

func TestBuild(t *testing.T) {
	r, err := Build(config.ReportingConfig{}, "test")
	require.NoError(t, err)
	assert.IsType(t, LogReporter{}, r)

	r, err = Build(config.ReportingConfig{Sentry: config.SentryConfig{DSN: "https://public@sentry.example.com/1"}}, "test")
	require.NoError(t, err)
	assert.IsType(t, &SentryReporter{}, r)

	_, err = Build(config.ReportingConfig{Sentry: config.SentryConfig{DSN: "::not a dsn"}}, "test")
	require.Error(t, err)
}
