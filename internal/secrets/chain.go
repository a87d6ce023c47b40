package secrets

import (
	"context"
	"fmt"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/hashicorp/go-multierror"

	"github.com/hugo-lorenzo-mato/hostdiag/internal/core"
)

// Credential source names.
const (
	SourceManagedIdentity = "managed_identity"
	SourceAzureCLI        = "azure_cli"
)

// Source is one link of a credential chain. New is called lazily the first
// time the chain needs a token.
type Source struct {
	Name string
	New  func() (azcore.TokenCredential, error)
}

// DefaultSources returns managed identity followed by the Azure CLI login.
// An empty clientID selects the system-assigned identity.
func DefaultSources(clientID string) []Source {
	return []Source{
		{
			Name: SourceManagedIdentity,
			New: func() (azcore.TokenCredential, error) {
				opts := &azidentity.ManagedIdentityCredentialOptions{}
				if clientID != "" {
					opts.ID = azidentity.ClientID(clientID)
				}
				return azidentity.NewManagedIdentityCredential(opts)
			},
		},
		{
			Name: SourceAzureCLI,
			New: func() (azcore.TokenCredential, error) {
				return azidentity.NewAzureCLICredential(nil)
			},
		},
	}
}

// Chain is an azcore.TokenCredential that tries its sources in order. The
// first source that returns a token is used for the rest of the chain's life.
type Chain struct {
	sources []Source

	mu           sync.Mutex
	selected     azcore.TokenCredential
	selectedName string
}

// NewChain creates a credential chain over sources.
func NewChain(sources ...Source) *Chain {
	return &Chain{sources: sources}
}

// GetToken implements azcore.TokenCredential.
func (c *Chain) GetToken(ctx context.Context, opts policy.TokenRequestOptions) (azcore.AccessToken, error) {
	c.mu.Lock()
	cred := c.selected
	c.mu.Unlock()
	if cred != nil {
		return cred.GetToken(ctx, opts)
	}

	if len(c.sources) == 0 {
		return azcore.AccessToken{}, core.ErrAuth("no credential sources configured")
	}

	var errs *multierror.Error
	for _, src := range c.sources {
		if err := ctx.Err(); err != nil {
			return azcore.AccessToken{}, err
		}

		cred, err := src.New()
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", src.Name, err))
			continue
		}
		tok, err := cred.GetToken(ctx, opts)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", src.Name, err))
			continue
		}

		c.mu.Lock()
		if c.selected == nil {
			c.selected = cred
			c.selectedName = src.Name
		}
		c.mu.Unlock()
		return tok, nil
	}

	return azcore.AccessToken{}, core.ErrAuth("no credential source could authenticate").
		WithCause(errs.ErrorOrNil())
}

// Selected returns the name of the source in use, or "" before the first
// successful GetToken.
func (c *Chain) Selected() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectedName
}
