package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/darmiel/fxrelay/internal/api"
	"github.com/darmiel/fxrelay/internal/api/presenter"
)

// SendEvents posts a webhook carrying the given identity provider token, the way the
// identity provider does.
func (c *Client) SendEvents(ctx context.Context, webhookToken string) (*presenter.MessageResponse, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url().
		setPath(api.EventsRoute).
		build(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+webhookToken)

	var resp presenter.MessageResponse
	correlation, err := c.do(req, &resp)
	if err != nil {
		return nil, correlation, err
	}
	return &resp, correlation, nil
}
