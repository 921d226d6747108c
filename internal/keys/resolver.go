// Package keys resolves the public signing keys of a token issuer through OIDC discovery.
package keys

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/go-jose/go-jose/v4"
)

var (
	ErrIssuerUnreachable = errors.New("issuer unreachable")
	ErrKeyNotFound       = errors.New("signing key not found")
)

// PublicKeyResolver returns the current public key with the given key id for an issuer.
type PublicKeyResolver interface {
	ResolvePublicKey(ctx context.Context, issuer, keyID string) (*rsa.PublicKey, error)
}

var _ PublicKeyResolver = (*Resolver)(nil)

// Resolver performs a fresh discovery + JWKS lookup for every call.
type Resolver struct {
	httpClient *http.Client
}

func NewResolver(httpClient *http.Client) *Resolver {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Resolver{httpClient: httpClient}
}

type discoveryClaims struct {
	JWKSURI string `json:"jwks_uri"`
}

func (r *Resolver) ResolvePublicKey(ctx context.Context, issuer, keyID string) (*rsa.PublicKey, error) {
	jwksURI, err := r.discover(ctx, issuer)
	if err != nil {
		return nil, err
	}

	set, err := r.fetchKeySet(ctx, jwksURI)
	if err != nil {
		return nil, err
	}

	for _, k := range set.Key(keyID) {
		if pub, ok := k.Key.(*rsa.PublicKey); ok {
			return pub, nil
		}
	}
	return nil, fmt.Errorf("%w: no RSA key with kid '%s' in %s", ErrKeyNotFound, keyID, jwksURI)
}

func (r *Resolver) discover(ctx context.Context, issuer string) (string, error) {
	provider, err := oidc.NewProvider(oidc.ClientContext(ctx, r.httpClient), issuer)
	if err != nil {
		return "", fmt.Errorf("%w: discovery for '%s': %w", ErrIssuerUnreachable, issuer, err)
	}
	var claims discoveryClaims
	if err := provider.Claims(&claims); err != nil {
		return "", fmt.Errorf("%w: reading discovery document of '%s': %w", ErrIssuerUnreachable, issuer, err)
	}
	if claims.JWKSURI == "" {
		return "", fmt.Errorf("%w: discovery document of '%s' has no jwks_uri", ErrIssuerUnreachable, issuer)
	}
	return claims.JWKSURI, nil
}

func (r *Resolver) fetchKeySet(ctx context.Context, uri string) (*jose.JSONWebKeySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating jwks request: %w", ErrIssuerUnreachable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching jwks from '%s': %w", ErrIssuerUnreachable, uri, err)
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: jwks status %d: %s",
			ErrIssuerUnreachable, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var set jose.JSONWebKeySet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("%w: decoding jwks from '%s': %w", ErrIssuerUnreachable, uri, err)
	}
	return &set, nil
}
