package secrets

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/hostdiag/internal/core"
)

type fakeCredential struct {
	mu    sync.Mutex
	token string
	err   error
	calls int
}

func (f *fakeCredential) GetToken(_ context.Context, _ policy.TokenRequestOptions) (azcore.AccessToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return azcore.AccessToken{}, f.err
	}
	return azcore.AccessToken{Token: f.token}, nil
}

func source(name string, cred *fakeCredential, newErr error) Source {
	return Source{
		Name: name,
		New: func() (azcore.TokenCredential, error) {
			if newErr != nil {
				return nil, newErr
			}
			return cred, nil
		},
	}
}

var scopes = policy.TokenRequestOptions{Scopes: []string{"https://vault.azure.net/.default"}}

func TestChain_FirstSourceWins(t *testing.T) {
	t.Parallel()

	mi := &fakeCredential{token: "mi-token"}
	cli := &fakeCredential{token: "cli-token"}
	chain := NewChain(source(SourceManagedIdentity, mi, nil), source(SourceAzureCLI, cli, nil))

	tok, err := chain.GetToken(context.Background(), scopes)
	require.NoError(t, err)
	assert.Equal(t, "mi-token", tok.Token)
	assert.Equal(t, SourceManagedIdentity, chain.Selected())
	assert.Zero(t, cli.calls)
}

func TestChain_FallsThrough(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mi     *fakeCredential
		miErr  error
		reason string
	}{
		{"constructor fails", nil, errors.New("no identity endpoint"), "no identity endpoint"},
		{"token request fails", &fakeCredential{err: errors.New("imds timeout")}, nil, "imds timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cli := &fakeCredential{token: "cli-token"}
			chain := NewChain(source(SourceManagedIdentity, tt.mi, tt.miErr), source(SourceAzureCLI, cli, nil))

			tok, err := chain.GetToken(context.Background(), scopes)
			require.NoError(t, err)
			assert.Equal(t, "cli-token", tok.Token)
			assert.Equal(t, SourceAzureCLI, chain.Selected())
		})
	}
}

func TestChain_RemembersSelectedSource(t *testing.T) {
	t.Parallel()

	mi := &fakeCredential{err: errors.New("unavailable")}
	cli := &fakeCredential{token: "cli-token"}
	chain := NewChain(source(SourceManagedIdentity, mi, nil), source(SourceAzureCLI, cli, nil))

	for i := 0; i < 3; i++ {
		_, err := chain.GetToken(context.Background(), scopes)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, mi.calls)
	assert.Equal(t, 3, cli.calls)
}

func TestChain_AllSourcesFail(t *testing.T) {
	t.Parallel()

	chain := NewChain(
		source(SourceManagedIdentity, nil, errors.New("no identity endpoint")),
		source(SourceAzureCLI, &fakeCredential{err: errors.New("az not logged in")}, nil),
	)

	_, err := chain.GetToken(context.Background(), scopes)
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatAuth))
	assert.Equal(t, core.CodeAuthFailed, core.GetCode(err))
	assert.Contains(t, err.Error(), "managed_identity: no identity endpoint")
	assert.Contains(t, err.Error(), "azure_cli: az not logged in")

	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 2)
	assert.Empty(t, chain.Selected())
}

func TestChain_NoSources(t *testing.T) {
	t.Parallel()

	_, err := NewChain().GetToken(context.Background(), scopes)
	assert.True(t, core.IsCategory(err, core.ErrCatAuth))
}

func TestChain_CanceledContext(t *testing.T) {
	t.Parallel()

	mi := &fakeCredential{token: "mi-token"}
	chain := NewChain(source(SourceManagedIdentity, mi, nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := chain.GetToken(ctx, scopes)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, mi.calls)
}

func TestDefaultSources(t *testing.T) {
	t.Parallel()

	sources := DefaultSources("00000000-0000-0000-0000-000000000001")
	require.Len(t, sources, 2)
	assert.Equal(t, SourceManagedIdentity, sources[0].Name)
	assert.Equal(t, SourceAzureCLI, sources[1].Name)

	for _, src := range DefaultSources("") {
		cred, err := src.New()
		require.NoError(t, err, src.Name)
		assert.NotNil(t, cred, src.Name)
	}
}
