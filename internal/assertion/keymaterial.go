package assertion

import (
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidKeyMaterial = errors.New("invalid private key material")

// PrivateKey is decoded signing key material.
type PrivateKey struct {
	Key   *rsa.PrivateKey
	KeyID string
}

// ParsePrivateKey decodes an RSA private key given either as a JWK (JSON) or as PEM.
func ParsePrivateKey(material string) (*PrivateKey, error) {
	material = strings.TrimSpace(material)
	if material == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidKeyMaterial)
	}

	if strings.HasPrefix(material, "-----BEGIN") {
		key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(material))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidKeyMaterial, err)
		}
		return &PrivateKey{Key: key}, nil
	}

	var jwk jose.JSONWebKey
	if err := json.Unmarshal([]byte(material), &jwk); err != nil {
		return nil, fmt.Errorf("%w: decoding jwk: %w", ErrInvalidKeyMaterial, err)
	}
	if jwk.IsPublic() {
		return nil, fmt.Errorf("%w: jwk is a public key", ErrInvalidKeyMaterial)
	}
	key, ok := jwk.Key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: jwk is not an RSA key (%T)", ErrInvalidKeyMaterial, jwk.Key)
	}
	return &PrivateKey{Key: key, KeyID: jwk.KeyID}, nil
}
