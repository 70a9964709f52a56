// Package azidentity adapts Azure SDK token credentials to the
// keyvault.TokenProvider interface.
//
// Any azcore.TokenCredential works, including everything the
// github.com/Azure/azure-sdk-for-go/sdk/azidentity module constructs
// (DefaultAzureCredential, ManagedIdentityCredential,
// ClientSecretCredential, ...). The credential caches and refreshes
// tokens internally; this adapter only requests them.
//
// Usage:
//
//	cred, err := azidentity.NewDefaultAzureCredential(nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client, err := keyvault.NewClient(cfg, kvazidentity.New(cred))
package azidentity

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"

	"github.com/hengadev/keyvault"
)

// DefaultScope is the OAuth2 scope requested for vault access in the
// Azure public cloud.
const DefaultScope = "https://vault.azure.net/.default"

// Provider implements keyvault.TokenProvider on top of an
// azcore.TokenCredential.
type Provider struct {
	credential azcore.TokenCredential
	scopes     []string
}

var _ keyvault.TokenProvider = (*Provider)(nil)

// New wraps credential, requesting DefaultScope unless scopes
// overrides it (sovereign clouds use a different vault resource).
func New(credential azcore.TokenCredential, scopes ...string) *Provider {
	if len(scopes) == 0 {
		scopes = []string{DefaultScope}
	}
	return &Provider{credential: credential, scopes: scopes}
}

// Token implements keyvault.TokenProvider.
func (p *Provider) Token(ctx context.Context) (string, error) {
	token, err := p.credential.GetToken(ctx, policy.TokenRequestOptions{Scopes: p.scopes})
	if err != nil {
		return "", fmt.Errorf("%w: acquire vault token: %w", keyvault.ErrAuthenticationFailed, err)
	}
	return token.Token, nil
}
