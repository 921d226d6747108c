package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darmiel/fxrelay/internal/api"
	"github.com/darmiel/fxrelay/internal/api/middleware"
	"github.com/darmiel/fxrelay/internal/audit"
	"github.com/darmiel/fxrelay/internal/core"
	"github.com/darmiel/fxrelay/internal/service"
	"github.com/darmiel/fxrelay/internal/worker"
)

var secret = []byte("client-test-secret")

type stubWebhooks struct {
	gotAuthorization string
}

func (s *stubWebhooks) HandleWebhook(_ context.Context, authorization string) (*service.WebhookResult, error) {
	s.gotAuthorization = authorization
	if authorization == "Bearer bad" {
		return nil, service.HTTPError{StatusCode: http.StatusUnauthorized, Wrapped: errors.New("Invalid token")}
	}
	return &service.WebhookResult{Message: "Successfully sent 2 out of 2 events.", Sent: 2, Total: 2}, nil
}

type stubWorker struct{}

func (stubWorker) Status() worker.Status { return worker.Status{Running: true} }

func (stubWorker) ProcessOnce(context.Context) (worker.BatchReport, error) {
	return worker.BatchReport{Received: 2, Succeeded: 1, Failed: 1}, nil
}

func newServer(t *testing.T) (*httptest.Server, *stubWebhooks, *audit.InMemoryAuditor) {
	t.Helper()
	webhooks := &stubWebhooks{}
	auditor := audit.NewInMemoryAuditor(0)
	srv := httptest.NewServer(api.NewServer(api.Options{
		Webhooks:    webhooks,
		Audits:      auditor,
		Worker:      stubWorker{},
		AdminSecret: secret,
	}).Routes())
	t.Cleanup(srv.Close)
	return srv, webhooks, auditor
}

func adminClient(t *testing.T, url string) *Client {
	t.Helper()
	token, err := middleware.IssueAdminToken(secret, "tester", time.Minute)
	require.NoError(t, err)
	return New(url, WithAuthToken(token))
}

func TestClient_Info(t *testing.T) {
	srv, _, _ := newServer(t)
	cli := New(srv.URL + "/")

	info, correlation, err := cli.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fxrelay", info.Service)
	assert.NotEmpty(t, correlation)

	require.NoError(t, cli.Health(context.Background()))
}

func TestClient_SendEvents(t *testing.T) {
	srv, webhooks, _ := newServer(t)

	// the admin session must not replace the webhook token
	cli := adminClient(t, srv.URL)
	resp, _, err := cli.SendEvents(context.Background(), "idp-token")
	require.NoError(t, err)
	assert.Equal(t, "Bearer idp-token", webhooks.gotAuthorization)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Successfully sent 2 out of 2 events.", resp.Message)

	_, correlation, err := cli.SendEvents(context.Background(), "bad")
	var apiErr APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Invalid token", apiErr.Message)
	assert.Equal(t, correlation, apiErr.CorrelationID)
}

func TestClient_ListAudits(t *testing.T) {
	srv, _, auditor := newServer(t)
	require.NoError(t, auditor.Log(core.AuditEntry{ID: "a", Action: "webhook.receive", SubjectID: "u1"}))
	require.NoError(t, auditor.Log(core.AuditEntry{ID: "b", Action: "event.dispatch", SubjectID: "u2"}))

	cli := adminClient(t, srv.URL)
	entries, _, err := cli.ListAudits(context.Background(), ListAuditsOpts{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	entries, _, err = cli.ListAudits(context.Background(), ListAuditsOpts{SubjectID: "u2"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "b", entries[0].ID)
}

func TestClient_Worker(t *testing.T) {
	srv, _, _ := newServer(t)
	cli := adminClient(t, srv.URL)

	status, _, err := cli.WorkerStatus(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Running)

	report, _, err := cli.PollWorker(context.Background())
	require.NoError(t, err)
	assert.Equal(t, worker.BatchReport{Received: 2, Succeeded: 1, Failed: 1}, *report)
}

func TestClient_InvalidSession(t *testing.T) {
	srv, _, _ := newServer(t)
	cli := New(srv.URL, WithAuthToken("garbage"))

	_, _, err := cli.ListAudits(context.Background(), ListAuditsOpts{})
	require.ErrorIs(t, err, ErrInvalidSession)
}
