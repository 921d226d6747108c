package core

import (
	"bytes"
	"context"
	"encoding/json"
	"time"
)

// Message is a single queue message as seen by a consumer.
type Message struct {
	// ID is the backend message id.
	ID string

	// Body is the raw message payload (a JSON encoded RelayEvent).
	Body []byte

	// ReceiveCount is how often the backend has delivered this message, including this delivery.
	ReceiveCount int

	// Handle is backend specific state needed to acknowledge the message.
	Handle any
}

// Producer enqueues messages.
type Producer interface {
	Send(ctx context.Context, body []byte) error
}

// Consumer receives messages in batches. Acknowledged messages are removed from the queue,
// negatively acknowledged messages are made available for redelivery.
type Consumer interface {
	Receive(ctx context.Context, max int) ([]Message, error)
	Ack(ctx context.Context, msgs ...Message) error
	Nack(ctx context.Context, msg Message) error
}

// Queue is the durable queue between the gateway and the consumer.
// Implementations: memory, redis, kafka, sqs.
type Queue interface {
	Producer
	Consumer
	Close() error
}

// SecretStore fetches secret material by name.
// Implementations: env, file, aws.
type SecretStore interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// Reporter forwards errors to an error-reporting sink.
type Reporter interface {
	Capture(ctx context.Context, err error, tags map[string]string)
	Flush(timeout time.Duration) bool
}

// MutationRequest is a single GraphQL mutation call.
type MutationRequest struct {
	// Name is used for logs and metrics only.
	Name string

	Document    string
	Variables   map[string]any
	BearerToken string

	// Headers are added to the request as-is.
	Headers map[string]string
}

// MutationResult is the response of the downstream API.
type MutationResult struct {
	Data   json.RawMessage `json:"data"`
	Errors json.RawMessage `json:"errors"`
}

// HasErrors reports whether the response carries an errors payload.
// `null` and an empty list count as no errors.
func (r *MutationResult) HasErrors() bool {
	trimmed := bytes.TrimSpace(r.Errors)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return false
	}
	var list []json.RawMessage
	if err := json.Unmarshal(trimmed, &list); err == nil && len(list) == 0 {
		return false
	}
	return true
}

// MutationGateway is the downstream GraphQL API.
type MutationGateway interface {
	Call(ctx context.Context, req MutationRequest) (*MutationResult, error)
}
