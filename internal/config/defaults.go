package config

import "time"

// Default values shared by the loader and the command line flags.
const (
	DefaultHost            = "localhost"
	DefaultPort            = 8080
	DefaultRequestTimeout  = 60 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultVaultMount      = "secret"
	EnvPrefix              = "HOSTDIAG"
)

// DefaultConfigYAML is a commented starting point for .hostdiag.yaml.
const DefaultConfigYAML = `# hostdiag configuration
# Every key can also be set through HOSTDIAG_<SECTION>_<KEY>, e.g.
# HOSTDIAG_SECRETS_KEY_VAULT_URI.

log:
  level: info      # debug, info, warn, error
  format: auto     # auto, text, json

server:
  host: localhost
  port: 8080
  enable_cors: false
  request_timeout: 60s

secrets:
  provider: azure  # azure or hashicorp
  # Client id of the user-assigned managed identity. Leave empty to use the
  # system-assigned identity. The Azure CLI login is tried when no managed
  # identity is available.
  user_assigned_identity_client_id: ""
  key_vault_uri: https://example-vault.vault.azure.net/
  secret_name: demo-secret
  # HashiCorp Vault settings, used when provider is hashicorp.
  # vault_address: http://127.0.0.1:8200
  # vault_mount: secret
`
