// Package verifier authenticates identity provider webhook tokens.
package verifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/darmiel/fxrelay/internal/core"
	"github.com/darmiel/fxrelay/internal/keys"
)

var (
	ErrDecode              = errors.New("token could not be decoded")
	ErrMissingIssuerOrKid  = errors.New("token is missing issuer or key id")
	ErrSignatureInvalid    = errors.New("token signature is invalid or token expired")
	ErrInvalidPayloadShape = errors.New("invalid token format")
)

// Algorithm is the only signing algorithm accepted for webhook tokens.
const Algorithm = "RS256"

type Verifier struct {
	keys keys.PublicKeyResolver
	now  func() time.Time
}

func New(resolver keys.PublicKeyResolver) *Verifier {
	return &Verifier{
		keys: resolver,
		now:  time.Now,
	}
}

// Verify decodes the token, resolves its signing key from the issuer named in the token,
// checks signature and expiry, and validates the payload shape.
func (v *Verifier) Verify(ctx context.Context, rawToken string) (*core.RelayPayload, error) {
	var unverified webhookClaims
	token, _, err := jwt.NewParser().ParseUnverified(rawToken, &unverified)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	kid, _ := token.Header["kid"].(string)
	if unverified.Issuer == "" || kid == "" {
		return nil, ErrMissingIssuerOrKid
	}

	logger := log.Ctx(ctx).With().
		Str("issuer", unverified.Issuer).
		Str("kid", kid).
		Logger()

	key, err := v.keys.ResolvePublicKey(ctx, unverified.Issuer, kid)
	if err != nil {
		logger.Warn().Err(err).Msg("could not resolve signing key")
		return nil, err
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{Algorithm}),
		jwt.WithTimeFunc(v.now),
	)
	var verified webhookClaims
	_, err = parser.ParseWithClaims(rawToken, &verified, func(*jwt.Token) (any, error) {
		return key, nil
	})
	if err != nil {
		logger.Warn().Err(err).Msg("token verification failed")
		return nil, fmt.Errorf("%w: %w", ErrSignatureInvalid, err)
	}

	return payloadFromClaims(&verified)
}

func payloadFromClaims(c *webhookClaims) (*core.RelayPayload, error) {
	sub, ok := c.Subject.(string)
	if !ok || sub == "" {
		return nil, fmt.Errorf("%w: missing 'sub'", ErrInvalidPayloadShape)
	}
	if len(c.Events) == 0 {
		return nil, fmt.Errorf("%w: missing 'events'", ErrInvalidPayloadShape)
	}
	var events core.EventMap
	if err := json.Unmarshal(c.Events, &events); err != nil {
		return nil, fmt.Errorf("%w: 'events' is not an object", ErrInvalidPayloadShape)
	}
	if events.Len() == 0 {
		return nil, fmt.Errorf("%w: 'events' is empty", ErrInvalidPayloadShape)
	}
	return &core.RelayPayload{
		Issuer:  c.Issuer,
		Subject: sub,
		Events:  events,
	}, nil
}
