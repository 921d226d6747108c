package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/darmiel/fxrelay/internal/core"
)

var _ core.SecretStore = (*Env)(nil)

// Env reads secrets from environment variables.
// A secret name like "FxAWebhookProxy/Prod/PRIVATE_KEY" is looked up as
// <prefix>FXAWEBHOOKPROXY_PROD_PRIVATE_KEY.
type Env struct {
	prefix string
	lookup func(string) (string, bool)
}

type EnvConfig struct {
	Prefix string `mapstructure:"prefix"`
}

func NewEnv(prefix string) *Env {
	return &Env{prefix: prefix, lookup: os.LookupEnv}
}

var envReplacer = strings.NewReplacer("/", "_", "-", "_", ".", "_")

func EnvName(prefix, name string) string {
	return prefix + strings.ToUpper(envReplacer.Replace(name))
}

func (e *Env) GetSecret(_ context.Context, name string) (string, error) {
	key := EnvName(e.prefix, name)
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: environment variable '%s' not set", ErrSecretNotFound, key)
	}
	return v, nil
}
