// Package events maps identity provider event-type URIs to relay events.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/darmiel/fxrelay/internal/core"
)

const (
	ProfileChangeURI = "https://schemas.accounts.firefox.com/event/profile-change"
	DeleteUserURI    = "https://schemas.accounts.firefox.com/event/delete-user"
)

// AllowList maps external event-type URIs to the kind they are relayed as.
// URIs not in the list are dropped.
type AllowList map[string]core.EventKind

// DefaultAllowList is the set of FxA events relayed to the downstream API.
// See https://github.com/mozilla/fxa/blob/main/packages/fxa-event-broker/README.md
func DefaultAllowList() AllowList {
	return AllowList{
		ProfileChangeURI: core.ProfileUpdate,
		DeleteUserURI:    core.UserDelete,
	}
}

// ParseAllowList converts a configured URI -> kind mapping.
func ParseAllowList(raw map[string]string) (AllowList, error) {
	list := make(AllowList, len(raw))
	for uri, kindStr := range raw {
		kind, err := core.ParseEventKind(kindStr)
		if err != nil {
			return nil, fmt.Errorf("allowed event '%s': %w", uri, err)
		}
		list[uri] = kind
	}
	return list, nil
}

// eventDetail holds the detail fields the relay forwards. A profile-change detail carrying
// an email signals an email change.
type eventDetail struct {
	Email       string `json:"email"`
	TransferSub string `json:"transferSub"`
}

func parseDetail(raw json.RawMessage) eventDetail {
	var d eventDetail
	// details are loosely typed, anything that is not an object simply carries no fields
	_ = json.Unmarshal(raw, &d)
	return d
}

// Extract emits one RelayEvent per allow-listed entry of the payload's event map,
// in the order the entries appear in the map. All events share the subject and timestamp.
func Extract(payload *core.RelayPayload, allow AllowList, now time.Time) []core.RelayEvent {
	timestamp := now.Unix()

	var out []core.RelayEvent
	for _, entry := range payload.Events {
		kind, ok := allow[entry.Type]
		if !ok {
			continue
		}
		detail := parseDetail(entry.Detail)
		out = append(out, core.RelayEvent{
			SubjectID:       payload.Subject,
			Kind:            kind,
			Timestamp:       timestamp,
			Email:           detail.Email,
			TransferSubject: detail.TransferSub,
		})
	}
	return out
}
