// Package testutil provides a fake OIDC issuer and key helpers for tests.
package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
)

const DefaultKeyID = "test-key-1"

var (
	sharedKeyOnce sync.Once
	sharedKey     *rsa.PrivateKey
)

// SharedKey returns a process-wide RSA key, generated on first use.
func SharedKey(t testing.TB) *rsa.PrivateKey {
	t.Helper()
	sharedKeyOnce.Do(func() {
		k, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		sharedKey = k
	})
	return sharedKey
}

// GenerateKey returns a fresh RSA key.
func GenerateKey(t testing.TB) *rsa.PrivateKey {
	t.Helper()
	k, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating rsa key: %v", err)
	}
	return k
}

// PrivateJWK encodes key as a private JWK JSON document.
func PrivateJWK(t testing.TB, key *rsa.PrivateKey, kid string) string {
	t.Helper()
	b, err := json.Marshal(jose.JSONWebKey{Key: key, KeyID: kid, Algorithm: "RS256", Use: "sig"})
	if err != nil {
		t.Fatalf("marshaling private jwk: %v", err)
	}
	return string(b)
}

// Sign signs claims with RS256 and sets the kid header (if not empty).
func Sign(t testing.TB, key *rsa.PrivateKey, kid string, claims jwt.Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if kid != "" {
		token.Header["kid"] = kid
	}
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

// Issuer is an httptest server serving an OIDC discovery document and a JWKS.
type Issuer struct {
	Server *httptest.Server
	Key    *rsa.PrivateKey
	KeyID  string

	DiscoveryHits atomic.Int32
	JWKSHits      atomic.Int32

	// FailJWKS makes the JWKS endpoint answer with a 500.
	FailJWKS atomic.Bool
}

func NewIssuer(t testing.TB) *Issuer {
	t.Helper()
	iss := &Issuer{
		Key:   SharedKey(t),
		KeyID: DefaultKeyID,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		iss.DiscoveryHits.Add(1)
		writeJSON(w, map[string]any{
			"issuer":   iss.Server.URL,
			"jwks_uri": iss.Server.URL + "/jwks",
		})
	})
	mux.HandleFunc("GET /jwks", func(w http.ResponseWriter, r *http.Request) {
		iss.JWKSHits.Add(1)
		if iss.FailJWKS.Load() {
			http.Error(w, "unavailable", http.StatusInternalServerError)
			return
		}
		writeJSON(w, jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{
			Key:       &iss.Key.PublicKey,
			KeyID:     iss.KeyID,
			Algorithm: "RS256",
			Use:       "sig",
		}}})
	})

	iss.Server = httptest.NewServer(mux)
	t.Cleanup(iss.Server.Close)
	return iss
}

func (i *Issuer) URL() string {
	return i.Server.URL
}

// Sign signs claims with the issuer's key and key id.
func (i *Issuer) Sign(t testing.TB, claims jwt.Claims) string {
	t.Helper()
	return Sign(t, i.Key, i.KeyID, claims)
}

// WebhookClaims are the claims of an identity provider webhook token.
type WebhookClaims struct {
	jwt.RegisteredClaims
	Events json.RawMessage `json:"events,omitempty"`
}

// WebhookToken signs a webhook token for subject, valid for a minute.
// events is the JSON event map.
func (i *Issuer) WebhookToken(t testing.TB, subject, events string) string {
	t.Helper()
	now := time.Now()
	return i.Sign(t, WebhookClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.URL(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		},
		Events: json.RawMessage(events),
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
