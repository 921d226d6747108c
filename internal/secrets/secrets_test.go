package secrets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darmiel/fxrelay/internal/config"
)

func TestEnvName(t *testing.T) {
	tests := []struct {
		prefix, name, want string
	}{
		{"", "FxAWebhookProxy/Prod/PRIVATE_KEY", "FXAWEBHOOKPROXY_PROD_PRIVATE_KEY"},
		{"FXRELAY_", "private-key", "FXRELAY_PRIVATE_KEY"},
		{"", "a.b", "A_B"},
	}
	for _, tt := range tests {
		if got := EnvName(tt.prefix, tt.name); got != tt.want {
			t.Errorf("EnvName(%q, %q) = %q, want %q", tt.prefix, tt.name, got, tt.want)
		}
	}
}

func TestEnv_GetSecret(t *testing.T) {
	e := NewEnv("FXRELAY_")
	e.lookup = func(key string) (string, bool) {
		if key == "FXRELAY_PRIVATE_KEY" {
			return "secret", true
		}
		return "", false
	}

	v, err := e.GetSecret(context.Background(), "private-key")
	require.NoError(t, err)
	assert.Equal(t, "secret", v)

	_, err = e.GetSecret(context.Background(), "other")
	assert.True(t, errors.Is(err, ErrSecretNotFound))
}

func TestFile_GetSecret(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "FxAWebhookProxy", "Prod"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "FxAWebhookProxy", "Prod", "key"), []byte("pem\n"), 0o600))

	f := NewFile(dir)
	v, err := f.GetSecret(context.Background(), "FxAWebhookProxy/Prod/key")
	require.NoError(t, err)
	assert.Equal(t, "pem", v)

	_, err = f.GetSecret(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrSecretNotFound))

	// names cannot escape the directory
	_, err = f.GetSecret(context.Background(), "../../etc/passwd")
	assert.True(t, errors.Is(err, ErrSecretNotFound))
}

type fakeSecretsManager struct {
	values map[string]string
}

func (f *fakeSecretsManager) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput,
	_ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	v, ok := f.values[aws.ToString(in.SecretId)]
	if !ok {
		return nil, &smtypes.ResourceNotFoundException{Message: aws.String("not found")}
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: aws.String(v)}, nil
}

func TestAWS_GetSecret(t *testing.T) {
	a := &AWS{client: &fakeSecretsManager{values: map[string]string{"FxAWebhookProxy/Prod": "jwk"}}}

	v, err := a.GetSecret(context.Background(), "FxAWebhookProxy/Prod")
	require.NoError(t, err)
	assert.Equal(t, "jwk", v)

	_, err = a.GetSecret(context.Background(), "FxAWebhookProxy/Dev")
	assert.True(t, errors.Is(err, ErrSecretNotFound))
}

func TestBuild(t *testing.T) {
	store, err := Build(context.Background(), config.SecretsConfig{
		Type:   TypeStatic,
		Config: map[string]any{"values": map[string]any{"k": "v"}},
	})
	require.NoError(t, err)
	v, err := store.GetSecret(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	store, err = Build(context.Background(), config.SecretsConfig{Type: TypeEnv, Config: map[string]any{"prefix": "X_"}})
	require.NoError(t, err)
	assert.Equal(t, "X_", store.(*Env).prefix)

	_, err = Build(context.Background(), config.SecretsConfig{Type: TypeFile})
	assert.Error(t, err)

	_, err = Build(context.Background(), config.SecretsConfig{Type: "vault"})
	assert.Error(t, err)
}
