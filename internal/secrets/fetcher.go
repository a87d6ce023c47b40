package secrets

import (
	"context"

	"github.com/hugo-lorenzo-mato/hostdiag/internal/config"
	"github.com/hugo-lorenzo-mato/hostdiag/internal/diagnostics"
	"github.com/hugo-lorenzo-mato/hostdiag/internal/logging"
)

// SnapshotBuilder produces a fresh diagnostics snapshot.
type SnapshotBuilder interface {
	Build(ctx context.Context) (*diagnostics.Snapshot, error)
}

// StoreOpener opens the store selected by cfg.
type StoreOpener func(cfg config.SecretsConfig) (Store, error)

// OpenStore opens the store named by cfg.Provider. Azure is the default.
func OpenStore(cfg config.SecretsConfig) (Store, error) {
	switch cfg.Provider {
	case config.ProviderHashiCorp:
		return NewHashiCorpStore(cfg.VaultAddress, cfg.VaultMount)
	default:
		chain := NewChain(DefaultSources(cfg.UserAssignedIdentityClientID)...)
		return NewAzureStore(cfg.KeyVaultURI, chain)
	}
}

// Fetcher reads the configured secret and merges it into a snapshot.
type Fetcher struct {
	builder SnapshotBuilder
	open    StoreOpener
	logger  *logging.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithStoreOpener overrides how secret stores are opened.
func WithStoreOpener(open StoreOpener) FetcherOption {
	return func(f *Fetcher) {
		f.open = open
	}
}

// WithLogger sets the fetcher logger.
func WithLogger(logger *logging.Logger) FetcherOption {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// NewFetcher creates a fetcher that builds snapshots with builder.
func NewFetcher(builder SnapshotBuilder, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		builder: builder,
		open:    OpenStore,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch reads cfg.SecretName and returns a fresh snapshot with Secret set.
// Nothing is cached between calls; the store and its credentials are opened
// per fetch.
func (f *Fetcher) Fetch(ctx context.Context, cfg config.SecretsConfig) (*diagnostics.Snapshot, error) {
	if err := config.ValidateSecrets(cfg); err != nil {
		return nil, err
	}
	provider := cfg.Provider
	if provider == "" {
		provider = config.ProviderAzure
	}

	store, err := f.open(cfg)
	if err != nil {
		return nil, err
	}

	secret, err := store.GetSecret(ctx, cfg.SecretName)
	if err != nil {
		f.logger.Warn("secret fetch failed",
			"provider", provider,
			"secret", cfg.SecretName,
			"error", err)
		return nil, err
	}
	f.logger.Sanitizer().SetLiteral(provider+"/"+cfg.SecretName, secret.Value)

	attrs := []any{"provider", provider, "secret", secret.Name}
	if r, ok := store.(CredentialReporter); ok && r.CredentialSource() != "" {
		attrs = append(attrs, "credential", r.CredentialSource())
	}
	f.logger.Info("secret fetched", attrs...)

	snap, err := f.builder.Build(ctx)
	if err != nil {
		return nil, err
	}
	snap.Secret = FormatSecret(secret)
	return snap, nil
}
