package secrets

import (
	"context"
	"fmt"

	"github.com/darmiel/fxrelay/internal/core"
)

var _ core.SecretStore = (*Static)(nil)

// Static serves secrets from a fixed map.
type Static struct {
	values map[string]string
}

type StaticConfig struct {
	Values map[string]string `mapstructure:"values"`
}

func NewStatic(values map[string]string) *Static {
	return &Static{values: values}
}

func (s *Static) GetSecret(_ context.Context, name string) (string, error) {
	v, ok := s.values[name]
	if !ok {
		return "", fmt.Errorf("%w: '%s'", ErrSecretNotFound, name)
	}
	return v, nil
}
