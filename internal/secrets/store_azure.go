package secrets

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"

	"github.com/hugo-lorenzo-mato/hostdiag/internal/core"
)

type secretGetter interface {
	GetSecret(ctx context.Context, name, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
}

// AzureStore reads secrets from Azure Key Vault.
type AzureStore struct {
	client   secretGetter
	chain    *Chain
	vaultURI string
}

// NewAzureStore opens a Key Vault client for vaultURI authenticated by chain.
func NewAzureStore(vaultURI string, chain *Chain) (*AzureStore, error) {
	client, err := azsecrets.NewClient(vaultURI, chain, nil)
	if err != nil {
		return nil, core.ErrValidation(core.CodeInvalidConfig, "invalid key vault uri").WithCause(err)
	}
	return &AzureStore{client: client, chain: chain, vaultURI: vaultURI}, nil
}

// GetSecret fetches the latest version of name.
func (s *AzureStore) GetSecret(ctx context.Context, name string) (Secret, error) {
	resp, err := s.client.GetSecret(ctx, name, "", nil)
	if err != nil {
		return Secret{}, mapAzureError(s.vaultURI, name, err)
	}

	secret := Secret{Name: name}
	if resp.ID != nil {
		if n := resp.ID.Name(); n != "" {
			secret.Name = n
		}
	}
	if resp.Value != nil {
		secret.Value = *resp.Value
	}
	return secret, nil
}

// CredentialSource reports which credential source authenticated the store.
func (s *AzureStore) CredentialSource() string {
	if s.chain == nil {
		return ""
	}
	return s.chain.Selected()
}

func mapAzureError(vaultURI, name string, err error) error {
	// Credential chain failures surface through the pipeline unchanged.
	var domErr *core.DomainError
	if errors.As(err, &domErr) {
		return err
	}

	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case http.StatusNotFound:
			return core.ErrVaultAccess(core.CodeSecretNotFound,
				fmt.Sprintf("secret %q not found in %s", name, vaultURI)).WithCause(err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return core.ErrVaultAccess(core.CodeAccessDenied,
				fmt.Sprintf("access to secret %q denied by %s", name, vaultURI)).WithCause(err)
		}
	}
	return core.ErrVaultAccess(core.CodeVaultUnavailable,
		fmt.Sprintf("reading secret %q from %s", name, vaultURI)).WithCause(err)
}
