package dispatch

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/darmiel/fxrelay/internal/core"
)

// Result is the settled outcome of one record of a batch.
type Result struct {
	Message core.Message
	Outcome Outcome
	Err     error
}

func (r Result) Failed() bool {
	return r.Err != nil
}

// DispatchBatch dispatches every message concurrently and waits for all of them to settle.
// A failing record never cancels its siblings; results are returned in message order.
func (d *Dispatcher) DispatchBatch(ctx context.Context, msgs []core.Message) []Result {
	results := make([]Result, len(msgs))

	// plain Group: no shared cancellation between records
	var g errgroup.Group
	if d.opts.Concurrency > 0 {
		g.SetLimit(d.opts.Concurrency)
	}
	for i, msg := range msgs {
		g.Go(func() error {
			outcome, err := d.Dispatch(ctx, msg.Body)
			results[i] = Result{
				Message: msg,
				Outcome: outcome,
				Err:     err,
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Failures returns the failed results of a batch.
func Failures(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if r.Failed() {
			out = append(out, r)
		}
	}
	return out
}
