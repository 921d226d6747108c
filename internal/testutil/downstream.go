package testutil

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/darmiel/fxrelay/internal/core"
)

// Downstream is an in-process MutationGateway that records every call.
type Downstream struct {
	// Respond produces the answer for a call. Nil answers with `{"data":{}}`.
	Respond func(req core.MutationRequest) (*core.MutationResult, error)

	mu    sync.Mutex
	calls []core.MutationRequest
}

var _ core.MutationGateway = (*Downstream)(nil)

func (d *Downstream) Call(_ context.Context, req core.MutationRequest) (*core.MutationResult, error) {
	d.mu.Lock()
	d.calls = append(d.calls, req)
	d.mu.Unlock()

	if d.Respond == nil {
		return &core.MutationResult{Data: json.RawMessage(`{}`)}, nil
	}
	return d.Respond(req)
}

func (d *Downstream) Calls() []core.MutationRequest {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]core.MutationRequest(nil), d.calls...)
}

// RespondJSON answers every call with the given {data, errors} document.
func RespondJSON(doc string) func(core.MutationRequest) (*core.MutationResult, error) {
	return func(core.MutationRequest) (*core.MutationResult, error) {
		var res core.MutationResult
		if err := json.Unmarshal([]byte(doc), &res); err != nil {
			return nil, err
		}
		return &res, nil
	}
}
