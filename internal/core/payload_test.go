package core

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestEventMap_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantTypes []string
		wantErr   bool
	}{
		{
			name:      "Keeps Key Order",
			input:     `{"b": {}, "a": {"email": "x@example.com"}, "c": "loose"}`,
			wantTypes: []string{"b", "a", "c"},
		},
		{
			name:      "Empty Object",
			input:     `{}`,
			wantTypes: []string{},
		},
		{
			name:      "Duplicate Keeps First Position",
			input:     `{"a": 1, "b": 2, "a": 3}`,
			wantTypes: []string{"a", "b"},
		},
		{
			name:    "Not An Object",
			input:   `["a"]`,
			wantErr: true,
		},
		{
			name:    "String",
			input:   `"a"`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m EventMap
			err := json.Unmarshal([]byte(tt.input), &m)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got := m.Types(); !reflect.DeepEqual(got, tt.wantTypes) {
				t.Errorf("Types() = %v, want %v", got, tt.wantTypes)
			}
		})
	}
}

func TestEventMap_DuplicateLastValueWins(t *testing.T) {
	var m EventMap
	if err := json.Unmarshal([]byte(`{"a": 1, "a": 3}`), &m); err != nil {
		t.Fatal(err)
	}
	detail, ok := m.Get("a")
	if !ok || string(detail) != "3" {
		t.Errorf("Get(a) = %s, %v", detail, ok)
	}
}

func TestEventMap_MarshalRoundTrip(t *testing.T) {
	input := `{"z":{},"a":{"email":"x@example.com"}}`
	var m EventMap
	if err := json.Unmarshal([]byte(input), &m); err != nil {
		t.Fatal(err)
	}
	out, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != input {
		t.Errorf("Marshal() = %s, want %s", out, input)
	}
}

func TestMutationResult_HasErrors(t *testing.T) {
	tests := []struct {
		name   string
		errors string
		want   bool
	}{
		{"Absent", ``, false},
		{"Null", `null`, false},
		{"Empty List", `[]`, false},
		{"List", `[{"message":"nope"}]`, true},
		{"Object", `{"CODE":"FORBIDDEN"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &MutationResult{Errors: json.RawMessage(tt.errors)}
			if got := r.HasErrors(); got != tt.want {
				t.Errorf("HasErrors() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseEventKind(t *testing.T) {
	for _, k := range []EventKind{UserDelete, ProfileUpdate, AppleMigration} {
		got, err := ParseEventKind(string(k))
		if err != nil || got != k {
			t.Errorf("ParseEventKind(%s) = %s, %v", k, got, err)
		}
	}
	if _, err := ParseEventKind("subscription_change"); err == nil {
		t.Error("expected error for unknown kind")
	}
}
