package core

import "context"

type correlationKey struct{}

// WithCorrelationID returns a context carrying the correlation id of a request or message.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID retrieves the correlation id from the context.
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}
