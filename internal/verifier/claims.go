package verifier

import (
	"encoding/json"

	"github.com/golang-jwt/jwt/v5"
)

var _ jwt.Claims = (*webhookClaims)(nil)

// webhookClaims is the payload of an identity provider webhook token.
// `sub` and `events` are kept loosely typed so that their shape can be validated
// after the signature check instead of failing the decode step.
type webhookClaims struct {
	Issuer    string           `json:"iss"`
	Subject   any              `json:"sub"`
	Audience  jwt.ClaimStrings `json:"aud,omitempty"`
	ExpiresAt *jwt.NumericDate `json:"exp,omitempty"`
	NotBefore *jwt.NumericDate `json:"nbf,omitempty"`
	IssuedAt  *jwt.NumericDate `json:"iat,omitempty"`
	Events    json.RawMessage  `json:"events"`
}

func (c *webhookClaims) GetExpirationTime() (*jwt.NumericDate, error) {
	return c.ExpiresAt, nil
}

func (c *webhookClaims) GetIssuedAt() (*jwt.NumericDate, error) {
	return c.IssuedAt, nil
}

func (c *webhookClaims) GetNotBefore() (*jwt.NumericDate, error) {
	return c.NotBefore, nil
}

func (c *webhookClaims) GetIssuer() (string, error) {
	return c.Issuer, nil
}

func (c *webhookClaims) GetSubject() (string, error) {
	sub, _ := c.Subject.(string)
	return sub, nil
}

func (c *webhookClaims) GetAudience() (jwt.ClaimStrings, error) {
	return c.Audience, nil
}
