package config

// legacyKey maps a flat key used by earlier appsettings-style deployments to
// the secrets field it fills. Lookup is case-insensitive.
type legacyKey struct {
	legacy    string
	canonical string
	field     func(*SecretsConfig) *string
}

var legacyKeys = []legacyKey{
	{"UserAssignedIdentityClientId", "secrets.user_assigned_identity_client_id",
		func(s *SecretsConfig) *string { return &s.UserAssignedIdentityClientID }},
	{"KeyVaultUri", "secrets.key_vault_uri",
		func(s *SecretsConfig) *string { return &s.KeyVaultURI }},
	{"SecretName", "secrets.secret_name",
		func(s *SecretsConfig) *string { return &s.SecretName }},
}

// applyLegacyKeys fills cfg from legacy keys present in the current read
// unless the canonical key is set by a file, env var or flag. viper state is
// left untouched so every reload resolves the aliases afresh.
func (l *Loader) applyLegacyKeys(cfg *Config) {
	for _, k := range legacyKeys {
		if !l.v.IsSet(k.legacy) || l.v.IsSet(k.canonical) {
			continue
		}
		*k.field(&cfg.Secrets) = l.v.GetString(k.legacy)
	}
}
