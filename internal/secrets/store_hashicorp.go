package secrets

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	vaultapi "github.com/hashicorp/vault/api"

	"github.com/hugo-lorenzo-mato/hostdiag/internal/core"
)

// ValueField is the KV v2 data key holding the displayed value.
const ValueField = "value"

type kvReader interface {
	Get(ctx context.Context, secretPath string) (*vaultapi.KVSecret, error)
}

// HashiCorpStore reads secrets from a HashiCorp Vault KV v2 mount. The client
// token comes from VAULT_TOKEN.
type HashiCorpStore struct {
	kv    kvReader
	mount string
}

// NewHashiCorpStore opens a Vault client. An empty address falls back to
// VAULT_ADDR and then the client default.
func NewHashiCorpStore(address, mount string) (*HashiCorpStore, error) {
	cfg := vaultapi.DefaultConfig()
	if cfg.Error != nil {
		return nil, core.ErrValidation(core.CodeInvalidConfig, "invalid vault environment").WithCause(cfg.Error)
	}
	if address != "" {
		cfg.Address = address
	}

	client, err := vaultapi.NewClient(cfg)
	if err != nil {
		return nil, core.ErrValidation(core.CodeInvalidConfig, "creating vault client").WithCause(err)
	}
	return &HashiCorpStore{kv: client.KVv2(mount), mount: mount}, nil
}

// GetSecret reads mount/name and returns its value field.
func (s *HashiCorpStore) GetSecret(ctx context.Context, name string) (Secret, error) {
	kvs, err := s.kv.Get(ctx, name)
	if err != nil {
		return Secret{}, mapVaultError(s.mount, name, err)
	}
	if kvs == nil || kvs.Data == nil {
		return Secret{}, core.ErrVaultAccess(core.CodeSecretNotFound,
			fmt.Sprintf("secret %q not found in mount %s", name, s.mount))
	}

	value, ok := kvs.Data[ValueField].(string)
	if !ok {
		return Secret{}, core.ErrVaultAccess(core.CodeSecretNotFound,
			fmt.Sprintf("secret %q has no %q field", name, ValueField))
	}
	return Secret{Name: name, Value: value}, nil
}

func mapVaultError(mount, name string, err error) error {
	if errors.Is(err, vaultapi.ErrSecretNotFound) {
		return core.ErrVaultAccess(core.CodeSecretNotFound,
			fmt.Sprintf("secret %q not found in mount %s", name, mount)).WithCause(err)
	}

	var respErr *vaultapi.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case http.StatusNotFound:
			return core.ErrVaultAccess(core.CodeSecretNotFound,
				fmt.Sprintf("secret %q not found in mount %s", name, mount)).WithCause(err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return core.ErrVaultAccess(core.CodeAccessDenied,
				fmt.Sprintf("access to secret %q denied", name)).WithCause(err)
		}
	}
	return core.ErrVaultAccess(core.CodeVaultUnavailable,
		fmt.Sprintf("reading secret %q from mount %s", name, mount)).WithCause(err)
}
