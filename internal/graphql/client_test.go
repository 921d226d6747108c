package graphql

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darmiel/fxrelay/internal/core"
)

type captured struct {
	header http.Header
	body   request
}

func newServer(t *testing.T, status int, response string) (*httptest.Server, *captured) {
	t.Helper()
	c := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.header = r.Header.Clone()
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&c.body))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, c
}

func TestClient_Call(t *testing.T) {
	srv, got := newServer(t, http.StatusOK, `{"data":{"deleteUserByFxaId":"12345"}}`)

	res, err := NewClient(srv.URL, time.Second).Call(context.Background(), core.MutationRequest{
		Name:        "deleteUserByFxaId",
		Document:    "mutation deleteUserByFxaId($id: ID!) { deleteUserByFxaId(id: $id) }",
		Variables:   map[string]any{"id": "12345"},
		BearerToken: "assertion",
		Headers:     map[string]string{"transfersub": "TRANSFER"},
	})
	require.NoError(t, err)
	assert.False(t, res.HasErrors())
	assert.JSONEq(t, `{"deleteUserByFxaId":"12345"}`, string(res.Data))

	assert.Equal(t, "Bearer assertion", got.header.Get("Authorization"))
	assert.Equal(t, "application/json", got.header.Get("Content-Type"))
	assert.Equal(t, "TRANSFER", got.header.Get("transfersub"))
	assert.Contains(t, got.header.Get("User-Agent"), "fxrelay/")
	assert.Equal(t, "deleteUserByFxaId", got.body.OperationName)
	assert.Equal(t, map[string]any{"id": "12345"}, got.body.Variables)
}

func TestClient_Call_Errors(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		response      string
		wantTransport bool
		wantErrors    string
	}{
		{
			name:       "Errors With OK Status",
			status:     http.StatusOK,
			response:   `{"data":null,"errors":{"CODE":"FORBIDDEN"}}`,
			wantErrors: `{"CODE":"FORBIDDEN"}`,
		},
		{
			name:       "Errors With Bad Status",
			status:     http.StatusBadRequest,
			response:   `{"errors":[{"message":"bad input"}]}`,
			wantErrors: `[{"message":"bad input"}]`,
		},
		{
			name:          "Bad Status Without Body",
			status:        http.StatusBadGateway,
			response:      `<html>bad gateway</html>`,
			wantTransport: true,
		},
		{
			name:          "Non JSON OK",
			status:        http.StatusOK,
			response:      `nope`,
			wantTransport: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newServer(t, tt.status, tt.response)
			res, err := NewClient(srv.URL, time.Second).Call(context.Background(), core.MutationRequest{
				Document: "mutation { x }",
			})
			if tt.wantTransport {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrTransport))
				return
			}
			require.NoError(t, err)
			require.True(t, res.HasErrors())
			assert.JSONEq(t, tt.wantErrors, string(res.Errors))
		})
	}
}

func TestClient_Call_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	_, err := NewClient(srv.URL, time.Second).Call(context.Background(), core.MutationRequest{})
	require.ErrorIs(t, err, ErrTransport)
}
