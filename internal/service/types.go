package service

import (
	"context"

	"github.com/darmiel/fxrelay/internal/core"
)

// TokenVerifier authenticates a webhook bearer token.
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (*core.RelayPayload, error)
}

const NoValidEventsMessage = "No valid events"

// WebhookResult summarizes a handled webhook.
type WebhookResult struct {
	Message string

	// Total is the number of relayed events extracted from the webhook.
	Total int

	// Sent is the number of events enqueued.
	Sent int

	Subject string
	Events  []core.EventKind
}
