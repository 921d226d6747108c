package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darmiel/fxrelay/internal/events"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, DefaultBatchSize, cfg.Consumer.BatchSize)
	assert.Equal(t, DefaultServiceIssuer, cfg.Service.Issuer)
	assert.Equal(t, DefaultServiceAudience, cfg.Service.Audience)
	assert.Equal(t, 10*time.Minute, cfg.Service.AssertionTTL)
	assert.Equal(t, "transfersub", cfg.Downstream.TransferSubHeader)
	assert.Equal(t, "memory", cfg.Queue.Type)
	assert.Equal(t, "env", cfg.Secrets.Type)
	assert.Zero(t, cfg.Gateway.KeyCache.TTL, "key cache must be off by default")
	assert.Equal(t, map[string]string{
		events.ProfileChangeURI: "profile_update",
		events.DeleteUserURI:    "user_delete",
	}, cfg.Gateway.AllowedEvents)
	require.NoError(t, cfg.Validate())
}

func TestParse(t *testing.T) {
	t.Setenv("FXRELAY_TEST_DOWNSTREAM", "https://api.example.com/graphql")

	doc := `
environment: production
service:
  assertion_ttl: 5m
gateway:
  addr: ":9000"
  key_cache:
    ttl: 30s
downstream:
  url: ${FXRELAY_TEST_DOWNSTREAM}
consumer:
  batch_size: 10
`
	cfg, err := Parse([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 5*time.Minute, cfg.Service.AssertionTTL)
	assert.Equal(t, ":9000", cfg.Gateway.Addr)
	assert.Equal(t, 30*time.Second, cfg.Gateway.KeyCache.TTL)
	assert.Equal(t, "https://api.example.com/graphql", cfg.Downstream.URL)
	assert.Equal(t, 10, cfg.Consumer.BatchSize)
	assert.Equal(t, DefaultConcurrency, cfg.Consumer.Concurrency)
	require.NoError(t, cfg.ValidateConsumer())
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "Unknown Event Kind",
			doc: `
gateway:
  allowed_events:
    "https://example.com/event/foo": explode
`,
		},
		{
			name: "Negative Batch Size",
			doc: `
consumer:
  batch_size: -1
`,
		},
		{
			name: "File Audit Without Path",
			doc: `
audit:
  enabled: true
  type: file
`,
		},
		{
			name: "Broken YAML",
			doc:  "gateway: [",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fxrelay.yaml")
	require.NoError(t, os.WriteFile(path, []byte("environment: staging\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.Environment)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidateConsumer(t *testing.T) {
	cfg := Default()
	require.Error(t, cfg.ValidateConsumer())
}
