package core

import "time"

type AuditEntry struct {
	// ID is the correlation id of a webhook request or the id of a queue message
	ID string `json:"id"`

	// Time is the timestamp of the event
	Time time.Time `json:"time"`

	// Action describing what happened (e.g. "webhook.accept", "event.dispatch")
	Action string `json:"action"`

	// SubjectID is the identity provider user the entry is about
	SubjectID string `json:"subject_id,omitempty"`

	// Issuer of the inbound token
	Issuer string `json:"issuer,omitempty"`

	// Events lists the event kinds involved
	Events []EventKind `json:"events,omitempty"`

	// Mutation is the downstream mutation that was called
	Mutation string `json:"mutation,omitempty"`

	// AssertionFingerprint identifies the assertion used for the downstream call
	AssertionFingerprint string `json:"assertion_fingerprint,omitempty"`

	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`

	// Metadata contains counters and other details
	Metadata map[string]any `json:"metadata,omitempty"`
}

type Auditor interface {
	Log(entry AuditEntry) error
	Close() error
}
