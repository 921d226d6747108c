package cliconfig

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoad(t *testing.T) {
	t.Setenv(ConfigPathEnv, filepath.Join(t.TempDir(), "nested", "config.json"))

	_, err := Load()
	require.Error(t, err)

	cfg := &CLIConfig{}
	require.NoError(t, cfg.SetCredential("https://relay.example.com:8443/", &Credential{Token: "abc"}))
	require.NoError(t, Save(cfg))

	loaded, err := Load()
	require.NoError(t, err)

	cred, err := loaded.GetCredential("https://relay.example.com:8443")
	require.NoError(t, err)
	assert.Equal(t, "abc", cred.Token)

	_, err = loaded.GetCredential("https://other.example.com")
	require.ErrorIs(t, err, ErrCredentialNotFound)
}

func TestSetCredential_NoHost(t *testing.T) {
	cfg := &CLIConfig{}
	require.Error(t, cfg.SetCredential("relay", &Credential{Token: "abc"}))
}

func TestCredential_Expired(t *testing.T) {
	now := time.Now()
	assert.False(t, (&Credential{}).Expired(now))
	assert.False(t, (&Credential{ExpiresAt: now.Add(time.Minute)}).Expired(now))
	assert.True(t, (&Credential{ExpiresAt: now.Add(-time.Minute)}).Expired(now))
}
