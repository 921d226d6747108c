// Package dispatch turns queue records into downstream mutation calls.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/darmiel/fxrelay/internal/assertion"
	"github.com/darmiel/fxrelay/internal/core"
	"github.com/darmiel/fxrelay/internal/metrics"
)

const DefaultTransferSubHeader = "transfersub"

// AssertionIssuer mints the bearer token for a downstream call.
type AssertionIssuer interface {
	Issue(ctx context.Context, subjectID string) (*assertion.Assertion, error)
}

type Options struct {
	// TransferSubHeader carries the transfer subject of migration events.
	TransferSubHeader string

	// Concurrency bounds DispatchBatch. Zero or less means unbounded.
	Concurrency int

	Metrics *metrics.Metrics
}

type Dispatcher struct {
	issuer  AssertionIssuer
	gateway core.MutationGateway
	opts    Options
}

func New(issuer AssertionIssuer, gateway core.MutationGateway, opts Options) *Dispatcher {
	if opts.TransferSubHeader == "" {
		opts.TransferSubHeader = DefaultTransferSubHeader
	}
	return &Dispatcher{
		issuer:  issuer,
		gateway: gateway,
		opts:    opts,
	}
}

// Outcome describes what Dispatch did with a record.
type Outcome struct {
	Event *core.RelayEvent

	// Mutation is the selected downstream mutation, empty if Skipped.
	Mutation string

	// Skipped is set if the record required no downstream call.
	Skipped bool

	AssertionFingerprint string
}

// plan is the downstream call selected for an event.
type plan struct {
	name      string
	document  string
	variables map[string]any
	headers   map[string]string
}

// DecodeRecord parses a queue record. Records without a known event kind or a user id
// are malformed.
func DecodeRecord(body []byte) (*core.RelayEvent, error) {
	var ev core.RelayEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}
	if ev.Kind == "" || ev.SubjectID == "" {
		return nil, ErrMalformedEvent
	}
	if !ev.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown event kind '%s'", ErrMalformedEvent, ev.Kind)
	}
	return &ev, nil
}

func (d *Dispatcher) plan(ev *core.RelayEvent) (*plan, error) {
	switch ev.Kind {
	case core.UserDelete:
		return &plan{
			name:      DeleteUserMutation,
			document:  deleteUserDocument,
			variables: map[string]any{"id": ev.SubjectID},
		}, nil
	case core.ProfileUpdate:
		// only email changes are relayed
		if ev.Email == "" {
			return nil, nil
		}
		return &plan{
			name:      UpdateEmailMutation,
			document:  updateEmailDocument,
			variables: map[string]any{"id": ev.SubjectID, "email": ev.Email},
		}, nil
	case core.AppleMigration:
		if ev.Email == "" || ev.TransferSubject == "" {
			return nil, fmt.Errorf("%w: apple migration requires user_email and transfer_sub", ErrMalformedEvent)
		}
		return &plan{
			name:      MigrateAppleUserMutation,
			document:  migrateAppleUserDocument,
			variables: map[string]any{"fxaId": ev.SubjectID, "email": ev.Email},
			headers:   map[string]string{d.opts.TransferSubHeader: ev.TransferSubject},
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown event kind '%s'", ErrMalformedEvent, ev.Kind)
	}
}

// Dispatch decodes a single queue record and performs the downstream mutation it calls for.
// Every call is authenticated with a freshly issued assertion.
func (d *Dispatcher) Dispatch(ctx context.Context, body []byte) (Outcome, error) {
	ev, err := DecodeRecord(body)
	if err != nil {
		return Outcome{}, err
	}
	outcome := Outcome{Event: ev}

	p, err := d.plan(ev)
	if err != nil {
		return outcome, err
	}
	logger := log.Ctx(ctx).With().
		Str("event", string(ev.Kind)).
		Str("user_id", ev.SubjectID).
		Logger()
	if p == nil {
		logger.Debug().Msg("no downstream action required")
		outcome.Skipped = true
		return outcome, nil
	}
	outcome.Mutation = p.name

	token, err := d.issuer.Issue(ctx, ev.SubjectID)
	if err != nil {
		return outcome, fmt.Errorf("issuing assertion: %w", err)
	}
	outcome.AssertionFingerprint = token.Fingerprint

	start := time.Now()
	res, err := d.gateway.Call(ctx, core.MutationRequest{
		Name:        p.name,
		Document:    p.document,
		Variables:   p.variables,
		BearerToken: token.Token,
		Headers:     p.headers,
	})
	d.opts.Metrics.ObserveMutation(p.name, time.Since(start))
	if err != nil {
		return outcome, fmt.Errorf("calling %s: %w", p.name, err)
	}
	if res.HasErrors() {
		return outcome, &MutationError{
			Mutation: p.name,
			Record:   json.RawMessage(bytes.TrimSpace(body)),
			Errors:   res.Errors,
		}
	}

	logger.Info().Str("mutation", p.name).Msg("mutation succeeded")
	return outcome, nil
}
