// Package assertion mints the short-lived RS256 assertions used to authenticate against the
// downstream API.
package assertion

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/darmiel/fxrelay/internal/core"
)

const (
	DefaultIssuer   = "https://getpocket.com"
	DefaultAudience = "https://client-api.getpocket.com/"
	DefaultTTL      = 10 * time.Minute
)

type Options struct {
	// Issuer is the identity of this service.
	Issuer string
	// Audience is the identity of the downstream API.
	Audience string
	// TTL is the lifetime of an assertion.
	TTL time.Duration
}

func (o Options) withDefaults() Options {
	if o.Issuer == "" {
		o.Issuer = DefaultIssuer
	}
	if o.Audience == "" {
		o.Audience = DefaultAudience
	}
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	return o
}

// Assertion is a signed token ready to be used as a bearer token.
type Assertion struct {
	Token       string
	Subject     string
	IssuedAt    time.Time
	ExpiresAt   time.Time
	Fingerprint string
}

// Sign builds the assertion payload for subjectID and signs it with key.
func Sign(key *PrivateKey, subjectID string, opts Options, now time.Time) (*Assertion, error) {
	opts = opts.withDefaults()

	iat := now.Unix()
	exp := iat + int64(opts.TTL/time.Second)

	claims := jwt.MapClaims{
		"iss": opts.Issuer,
		"aud": opts.Audience,
		"iat": iat,
		"exp": exp,
		"sub": subjectID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if key.KeyID != "" {
		token.Header["kid"] = key.KeyID
	}
	signed, err := token.SignedString(key.Key)
	if err != nil {
		return nil, fmt.Errorf("signing assertion: %w", err)
	}

	return &Assertion{
		Token:       signed,
		Subject:     subjectID,
		IssuedAt:    time.Unix(iat, 0),
		ExpiresAt:   time.Unix(exp, 0),
		Fingerprint: core.Fingerprint(signed),
	}, nil
}

// Issuer fetches the private key from the secret store and signs a fresh assertion on every call.
// Key material is not kept between calls.
type Issuer struct {
	secrets core.SecretStore
	keyName string
	opts    Options
	now     func() time.Time
}

func NewIssuer(secrets core.SecretStore, keyName string, opts Options) *Issuer {
	return &Issuer{
		secrets: secrets,
		keyName: keyName,
		opts:    opts.withDefaults(),
		now:     time.Now,
	}
}

func (i *Issuer) Issue(ctx context.Context, subjectID string) (*Assertion, error) {
	material, err := i.secrets.GetSecret(ctx, i.keyName)
	if err != nil {
		return nil, fmt.Errorf("fetching private key '%s': %w", i.keyName, err)
	}
	key, err := ParsePrivateKey(material)
	if err != nil {
		return nil, err
	}
	return Sign(key, subjectID, i.opts, i.now())
}
