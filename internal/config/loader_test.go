package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoader_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := NewLoader().Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "info")
	}
	if cfg.Log.Format != "auto" {
		t.Errorf("Log.Format = %q, want %q", cfg.Log.Format, "auto")
	}
	if cfg.Server.Port != DefaultPort {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, DefaultPort)
	}
	if cfg.Server.RequestTimeoutDuration() != DefaultRequestTimeout {
		t.Errorf("RequestTimeoutDuration() = %v, want %v", cfg.Server.RequestTimeoutDuration(), DefaultRequestTimeout)
	}
	if cfg.Secrets.Provider != ProviderAzure {
		t.Errorf("Secrets.Provider = %q, want %q", cfg.Secrets.Provider, ProviderAzure)
	}
	if cfg.Secrets.VaultMount != DefaultVaultMount {
		t.Errorf("Secrets.VaultMount = %q, want %q", cfg.Secrets.VaultMount, DefaultVaultMount)
	}
	if err := ValidateConfig(cfg); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoader_ConfigFile(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
server:
  port: 9090
  request_timeout: 5s
secrets:
  user_assigned_identity_client_id: 00000000-0000-0000-0000-000000000001
  key_vault_uri: https://demo.vault.azure.net/
  secret_name: db-password
`)

	loader := NewLoader().WithConfigFile(path)
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, path, loader.ConfigFile())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.RequestTimeoutDuration())
	assert.Equal(t, "00000000-0000-0000-0000-000000000001", cfg.Secrets.UserAssignedIdentityClientID)
	assert.Equal(t, "https://demo.vault.azure.net/", cfg.Secrets.KeyVaultURI)
	assert.Equal(t, "db-password", cfg.Secrets.SecretName)
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "secrets:\n  secret_name: from-file\n")
	t.Setenv("HOSTDIAG_SECRETS_SECRET_NAME", "from-env")

	cfg, err := NewLoader().WithConfigFile(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Secrets.SecretName)
}

func TestLoader_LegacyKeys(t *testing.T) {
	path := writeConfig(t, `
UserAssignedIdentityClientId: legacy-client
KeyVaultUri: https://legacy.vault.azure.net/
SecretName: legacy-secret
`)

	cfg, err := NewLoader().WithConfigFile(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "legacy-client", cfg.Secrets.UserAssignedIdentityClientID)
	assert.Equal(t, "https://legacy.vault.azure.net/", cfg.Secrets.KeyVaultURI)
	assert.Equal(t, "legacy-secret", cfg.Secrets.SecretName)
}

func TestLoader_CanonicalKeyWinsOverLegacy(t *testing.T) {
	path := writeConfig(t, `
SecretName: legacy-secret
secrets:
  secret_name: canonical-secret
`)

	cfg, err := NewLoader().WithConfigFile(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "canonical-secret", cfg.Secrets.SecretName)
}

func TestLoader_ReloadMovesFromLegacyToCanonical(t *testing.T) {
	path := writeConfig(t, `
KeyVaultUri: https://old.vault.azure.net/
SecretName: legacy-secret
`)
	loader := NewLoader().WithConfigFile(path)

	cfg, err := loader.Load()
	require.NoError(t, err)
	require.Equal(t, "https://old.vault.azure.net/", cfg.Secrets.KeyVaultURI)

	require.NoError(t, os.WriteFile(path, []byte(`
secrets:
  key_vault_uri: https://new.vault.azure.net/
`), 0o600))

	cfg, err = loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "https://new.vault.azure.net/", cfg.Secrets.KeyVaultURI)
	assert.Empty(t, cfg.Secrets.SecretName, "legacy value must not outlive its key")
}

func TestLoader_WatchReloadsSecrets(t *testing.T) {
	path := writeConfig(t, `
KeyVaultUri: https://old.vault.azure.net/
SecretName: legacy-secret
`)
	loader := NewLoader().WithConfigFile(path)
	cfg, err := loader.Load()
	require.NoError(t, err)
	require.Equal(t, "https://old.vault.azure.net/", cfg.Secrets.KeyVaultURI)

	changes := make(chan SecretsConfig, 32)
	require.True(t, loader.Watch(func(c *Config, _ fsnotify.Event) {
		select {
		case changes <- c.Secrets:
		default:
		}
	}, nil))

	require.NoError(t, os.WriteFile(path, []byte(`
secrets:
  key_vault_uri: https://new.vault.azure.net/
  secret_name: new-secret
`), 0o600))

	// A single save can fire more than one event; wait for the final contents.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case got := <-changes:
			if got.KeyVaultURI != "https://new.vault.azure.net/" {
				continue
			}
			assert.Equal(t, "new-secret", got.SecretName)
			return
		case <-deadline:
			t.Fatal("onChange never received the rewritten secrets")
		}
	}
}

func TestLoader_InvalidFile(t *testing.T) {
	path := writeConfig(t, "log: [unclosed")

	_, err := NewLoader().WithConfigFile(path).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config")
}

func TestLoader_WatchWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	loader := NewLoader()
	_, err := loader.Load()
	require.NoError(t, err)

	assert.False(t, loader.Watch(nil, nil))
}

func TestServerConfig_DurationFallback(t *testing.T) {
	t.Parallel()

	cfg := ServerConfig{RequestTimeout: "bogus", ShutdownTimeout: "-1s"}
	assert.Equal(t, DefaultRequestTimeout, cfg.RequestTimeoutDuration())
	assert.Equal(t, DefaultShutdownTimeout, cfg.ShutdownTimeoutDuration())
}
