package azidentity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hengadev/keyvault"
)

// credentialStub records the scopes it was asked for.
type credentialStub struct {
	token  string
	err    error
	scopes []string
}

func (c *credentialStub) GetToken(_ context.Context, opts policy.TokenRequestOptions) (azcore.AccessToken, error) {
	c.scopes = opts.Scopes
	if c.err != nil {
		return azcore.AccessToken{}, c.err
	}
	return azcore.AccessToken{Token: c.token, ExpiresOn: time.Now().Add(time.Hour)}, nil
}

func TestProviderRequestsDefaultScope(t *testing.T) {
	stub := &credentialStub{token: "issued-token"}

	token, err := New(stub).Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "issued-token", token)
	assert.Equal(t, []string{DefaultScope}, stub.scopes)
}

func TestProviderCustomScopes(t *testing.T) {
	stub := &credentialStub{token: "sovereign-token"}
	scope := "https://vault.azure.cn/.default"

	token, err := New(stub, scope).Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sovereign-token", token)
	assert.Equal(t, []string{scope}, stub.scopes)
}

func TestProviderWrapsCredentialErrors(t *testing.T) {
	stub := &credentialStub{err: errors.New("identity endpoint unreachable")}

	_, err := New(stub).Token(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, keyvault.ErrAuthenticationFailed)
	assert.ErrorContains(t, err, "identity endpoint unreachable")
}
