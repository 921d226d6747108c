package client

import (
	"context"

	"github.com/darmiel/fxrelay/internal/api"
	"github.com/darmiel/fxrelay/internal/core"
	"github.com/darmiel/fxrelay/internal/worker"
)

type ListAuditsOpts struct {
	Limit uint

	ID          string
	SubjectID   string
	Action      string
	Fingerprint string
}

// ListAudits retrieves the latest audit entries from the server.
func (c *Client) ListAudits(ctx context.Context, opts ListAuditsOpts) ([]core.AuditEntry, string, error) {
	ub := c.url().setPath(api.ListAuditsRoute)
	if opts.Limit > 0 {
		ub = ub.addQueryParam("limit", opts.Limit)
	}
	if opts.ID != "" {
		ub = ub.addQueryParam("id", opts.ID)
	}
	if opts.SubjectID != "" {
		ub = ub.addQueryParam("subject_id", opts.SubjectID)
	}
	if opts.Action != "" {
		ub = ub.addQueryParam("action", opts.Action)
	}
	if opts.Fingerprint != "" {
		ub = ub.addQueryParam("fingerprint", opts.Fingerprint)
	}
	var resp []core.AuditEntry
	correlation, err := c.get(ctx, ub.build(), &resp)
	return resp, correlation, err
}

func (c *Client) WorkerStatus(ctx context.Context) (*worker.Status, string, error) {
	var status worker.Status
	correlation, err := c.get(ctx, c.url().
		setPath(api.WorkerStatusRoute).
		build(), &status)
	return &status, correlation, err
}

// PollWorker makes the server's consumer process one batch right away.
func (c *Client) PollWorker(ctx context.Context) (*worker.BatchReport, string, error) {
	var report worker.BatchReport
	correlation, err := c.post(ctx, c.url().
		setPath(api.WorkerPollRoute).
		build(), &report)
	return &report, correlation, err
}
