// Package secrets provides the secret stores the consumer fetches its signing key from.
package secrets

import (
	"errors"
)

var ErrSecretNotFound = errors.New("secret not found")
