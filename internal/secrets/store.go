package secrets

import "context"

// Secret is a named value read from a secret store.
type Secret struct {
	Name  string
	Value string
}

// String renders the secret the way the diagnostics page shows it.
func (s Secret) String() string {
	return FormatSecret(s)
}

// FormatSecret renders a secret as "<name>: <value>".
func FormatSecret(s Secret) string {
	return s.Name + ": " + s.Value
}

// Store reads secrets by name.
type Store interface {
	GetSecret(ctx context.Context, name string) (Secret, error)
}

// CredentialReporter is implemented by stores that authenticate through a
// credential chain.
type CredentialReporter interface {
	CredentialSource() string
}
