package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/hostdiag/internal/core"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// Validate validates the entire configuration. Secret store fields that are
// only needed to fetch a secret are checked by ValidateSecrets instead, so
// the diagnostics page works without a configured vault.
func (v *Validator) Validate(cfg *Config) error {
	v.validateLog(&cfg.Log)
	v.validateServer(&cfg.Server)
	v.validateSecretsShape(&cfg.Secrets)

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

// Errors returns the collected validation errors.
func (v *Validator) Errors() ValidationErrors {
	return v.errors
}

func (v *Validator) addError(field string, value interface{}, msg string) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Value:   value,
		Message: msg,
	})
}

func (v *Validator) validateLog(cfg *LogConfig) {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[cfg.Level] {
		v.addError("log.level", cfg.Level, "must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"auto": true, "text": true, "json": true,
	}
	if !validFormats[cfg.Format] {
		v.addError("log.format", cfg.Format, "must be one of: auto, text, json")
	}
}

func (v *Validator) validateServer(cfg *ServerConfig) {
	if cfg.Port < 0 || cfg.Port > 65535 {
		v.addError("server.port", cfg.Port, "must be between 0 and 65535")
	}
	v.validateDuration("server.request_timeout", cfg.RequestTimeout)
	v.validateDuration("server.shutdown_timeout", cfg.ShutdownTimeout)
}

func (v *Validator) validateDuration(field, value string) {
	if value == "" {
		return
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		v.addError(field, value, "invalid duration format")
		return
	}
	if d <= 0 {
		v.addError(field, value, "must be positive")
	}
}

func (v *Validator) validateSecretsShape(cfg *SecretsConfig) {
	switch cfg.Provider {
	case ProviderAzure, ProviderHashiCorp:
	default:
		v.addError("secrets.provider", cfg.Provider, "must be one of: azure, hashicorp")
	}

	if cfg.KeyVaultURI != "" {
		if err := checkURL(cfg.KeyVaultURI, "https"); err != nil {
			v.addError("secrets.key_vault_uri", cfg.KeyVaultURI, err.Error())
		}
	}
	if cfg.VaultAddress != "" {
		if err := checkURL(cfg.VaultAddress, "http", "https"); err != nil {
			v.addError("secrets.vault_address", cfg.VaultAddress, err.Error())
		}
	}
}

func checkURL(raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return fmt.Errorf("must be an absolute URL")
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("scheme must be one of: %s", strings.Join(schemes, ", "))
}

// ValidateConfig is a convenience function that creates a validator and validates config.
func ValidateConfig(cfg *Config) error {
	v := NewValidator()
	return v.Validate(cfg)
}

// ValidateSecrets checks the fields a secret fetch needs. The returned error
// is a core validation error.
func ValidateSecrets(cfg SecretsConfig) error {
	var missing []string
	if cfg.SecretName == "" {
		missing = append(missing, "secrets.secret_name")
	}
	switch cfg.Provider {
	case ProviderHashiCorp:
		if cfg.VaultMount == "" {
			missing = append(missing, "secrets.vault_mount")
		}
	default:
		if cfg.KeyVaultURI == "" {
			missing = append(missing, "secrets.key_vault_uri")
		}
	}
	if len(missing) > 0 {
		return core.ErrValidation(core.CodeInvalidConfig,
			"secret store not configured: missing "+strings.Join(missing, ", "))
	}
	return nil
}
