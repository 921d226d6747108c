package dispatch

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrMalformedEvent = errors.New("malformed event")

	// ErrDownstreamMutation matches every *MutationError via errors.Is.
	ErrDownstreamMutation = errors.New("downstream mutation failed")
)

// MutationError is returned when the downstream API answers with an errors payload.
// Record is the queue record as received, Errors the errors payload verbatim.
type MutationError struct {
	Mutation string
	Record   json.RawMessage
	Errors   json.RawMessage
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("Error processing %s: \n%s", e.Record, e.Errors)
}

func (e *MutationError) Is(target error) bool {
	return target == ErrDownstreamMutation
}
