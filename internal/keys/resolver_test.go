package keys

import (
	"context"
	"crypto/rsa"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darmiel/fxrelay/internal/testutil"
)

func TestResolver_ResolvePublicKey(t *testing.T) {
	iss := testutil.NewIssuer(t)
	r := NewResolver(nil)

	key, err := r.ResolvePublicKey(context.Background(), iss.URL(), iss.KeyID)
	require.NoError(t, err)
	assert.True(t, key.Equal(&iss.Key.PublicKey))
	assert.EqualValues(t, 1, iss.DiscoveryHits.Load())
	assert.EqualValues(t, 1, iss.JWKSHits.Load())
}

func TestResolver_NoCaching(t *testing.T) {
	iss := testutil.NewIssuer(t)
	r := NewResolver(nil)

	for i := 0; i < 3; i++ {
		_, err := r.ResolvePublicKey(context.Background(), iss.URL(), iss.KeyID)
		require.NoError(t, err)
	}
	assert.EqualValues(t, 3, iss.DiscoveryHits.Load())
	assert.EqualValues(t, 3, iss.JWKSHits.Load())
}

func TestResolver_Errors(t *testing.T) {
	iss := testutil.NewIssuer(t)

	notJSON := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>hello</html>"))
	}))
	t.Cleanup(notJSON.Close)

	tests := []struct {
		name    string
		issuer  string
		keyID   string
		setup   func()
		wantErr error
	}{
		{
			name:    "Unknown Kid",
			issuer:  iss.URL(),
			keyID:   "not-a-kid",
			wantErr: ErrKeyNotFound,
		},
		{
			name:    "Discovery Not JSON",
			issuer:  notJSON.URL,
			keyID:   iss.KeyID,
			wantErr: ErrIssuerUnreachable,
		},
		{
			name:    "Issuer Down",
			issuer:  "http://127.0.0.1:1",
			keyID:   iss.KeyID,
			wantErr: ErrIssuerUnreachable,
		},
		{
			name:    "JWKS Fails",
			issuer:  iss.URL(),
			keyID:   iss.KeyID,
			setup:   func() { iss.FailJWKS.Store(true) },
			wantErr: ErrIssuerUnreachable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup()
			}
			_, err := NewResolver(nil).ResolvePublicKey(context.Background(), tt.issuer, tt.keyID)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %v", err, tt.wantErr)
		})
	}
}

type countingResolver struct {
	calls int
	key   *rsa.PublicKey
	err   error
}

func (c *countingResolver) ResolvePublicKey(context.Context, string, string) (*rsa.PublicKey, error) {
	c.calls++
	return c.key, c.err
}
