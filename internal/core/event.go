package core

import "fmt"

// EventKind identifies what a relayed event asks the downstream API to do.
type EventKind string

const (
	UserDelete     EventKind = "user_delete"
	ProfileUpdate  EventKind = "profile_update"
	AppleMigration EventKind = "apple_migration"
)

// Valid reports whether k is one of the known kinds.
func (k EventKind) Valid() bool {
	switch k {
	case UserDelete, ProfileUpdate, AppleMigration:
		return true
	}
	return false
}

func ParseEventKind(s string) (EventKind, error) {
	k := EventKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown event kind '%s'", s)
	}
	return k, nil
}

// RelayEvent is a single sub-event extracted from an identity provider webhook.
// Its JSON form is the queue message schema shared by the gateway and the consumer.
type RelayEvent struct {
	// SubjectID is the identity provider's user id (the token's `sub`).
	SubjectID string `json:"user_id"`

	// Kind selects the downstream mutation.
	Kind EventKind `json:"event"`

	// Timestamp is the time the gateway accepted the event, in unix seconds.
	Timestamp int64 `json:"timestamp"`

	// Email is set for email changes and account migrations.
	Email string `json:"user_email,omitempty"`

	// TransferSubject is the migration transfer id of an AppleMigration event.
	TransferSubject string `json:"transfer_sub,omitempty"`
}
