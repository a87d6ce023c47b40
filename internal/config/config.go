package config

import "time"

// Config holds all application configuration.
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Server  ServerConfig  `mapstructure:"server"`
	Secrets SecretsConfig `mapstructure:"secrets"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host            string   `mapstructure:"host"`
	Port            int      `mapstructure:"port"`
	EnableCORS      bool     `mapstructure:"enable_cors"`
	CORSOrigins     []string `mapstructure:"cors_origins"`
	RequestTimeout  string   `mapstructure:"request_timeout"`
	ShutdownTimeout string   `mapstructure:"shutdown_timeout"`
}

// RequestTimeoutDuration parses RequestTimeout, falling back to the default.
func (c ServerConfig) RequestTimeoutDuration() time.Duration {
	return parseDurationOr(c.RequestTimeout, DefaultRequestTimeout)
}

// ShutdownTimeoutDuration parses ShutdownTimeout, falling back to the default.
func (c ServerConfig) ShutdownTimeoutDuration() time.Duration {
	return parseDurationOr(c.ShutdownTimeout, DefaultShutdownTimeout)
}

// Secret store providers.
const (
	ProviderAzure     = "azure"
	ProviderHashiCorp = "hashicorp"
)

// SecretsConfig selects the secret store and the secret shown by the
// secret page. It is read fresh for every fetch.
type SecretsConfig struct {
	Provider string `mapstructure:"provider"`

	// Azure Key Vault
	UserAssignedIdentityClientID string `mapstructure:"user_assigned_identity_client_id"`
	KeyVaultURI                  string `mapstructure:"key_vault_uri"`

	// HashiCorp Vault (KV v2). The token comes from VAULT_TOKEN.
	VaultAddress string `mapstructure:"vault_address"`
	VaultMount   string `mapstructure:"vault_mount"`

	SecretName string `mapstructure:"secret_name"`
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
