package client

import (
	"context"

	"github.com/darmiel/fxrelay/internal/api"
	"github.com/darmiel/fxrelay/internal/buildinfo"
)

func (c *Client) Info(ctx context.Context) (*buildinfo.Info, string, error) {
	var info buildinfo.Info
	correlation, err := c.get(ctx, c.url().
		setPath(api.InfoRoute).
		build(), &info)
	return &info, correlation, err
}

// Health returns nil if the server reports itself healthy.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.get(ctx, c.url().
		setPath(api.HealthCheckRoute).
		build(), nil)
	return err
}
