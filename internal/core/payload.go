package core

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RelayPayload is the verified content of an inbound webhook token.
type RelayPayload struct {
	Issuer  string
	Subject string
	Events  EventMap
}

// EventEntry is a single entry of an EventMap.
type EventEntry struct {
	// Type is the event-type URI, e.g. https://schemas.accounts.firefox.com/event/delete-user
	Type string
	// Detail is the event specific object, kept as received.
	Detail json.RawMessage
}

// EventMap maps event-type URIs to their details.
// Unlike a Go map it keeps the order in which the keys appeared in the token.
type EventMap []EventEntry

func (m EventMap) Len() int {
	return len(m)
}

func (m EventMap) Get(eventType string) (json.RawMessage, bool) {
	for _, e := range m {
		if e.Type == eventType {
			return e.Detail, true
		}
	}
	return nil, false
}

func (m EventMap) Types() []string {
	types := make([]string, 0, len(m))
	for _, e := range m {
		types = append(types, e.Type)
	}
	return types
}

func (m *EventMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("events must be a JSON object")
	}

	var out EventMap
	seen := make(map[string]int)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)

		var detail json.RawMessage
		if err := dec.Decode(&detail); err != nil {
			return fmt.Errorf("decoding event '%s': %w", key, err)
		}

		// duplicate keys: last value wins, first position is kept
		if idx, ok := seen[key]; ok {
			out[idx].Detail = detail
			continue
		}
		seen[key] = len(out)
		out = append(out, EventEntry{Type: key, Detail: detail})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*m = out
	return nil
}

func (m EventMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Type)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if len(e.Detail) == 0 {
			buf.WriteString("null")
		} else {
			buf.Write(e.Detail)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
