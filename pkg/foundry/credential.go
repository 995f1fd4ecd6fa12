package foundry

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

// TokenProvider produces a bearer token for an audience on demand.
type TokenProvider interface {
	Token(ctx context.Context, audience string) (string, error)
}

// TokenProviderFunc adapts a function to TokenProvider.
type TokenProviderFunc func(ctx context.Context, audience string) (string, error)

func (f TokenProviderFunc) Token(ctx context.Context, audience string) (string, error) {
	return f(ctx, audience)
}

// CredentialTokenProvider serves tokens from an azcore.TokenCredential. The
// azidentity credentials cache tokens and are safe for concurrent use, so one
// provider is shared by every request.
type CredentialTokenProvider struct {
	cred azcore.TokenCredential
}

func NewCredentialTokenProvider(cred azcore.TokenCredential) *CredentialTokenProvider {
	return &CredentialTokenProvider{cred: cred}
}

// NewDefaultTokenProvider builds a provider on azidentity.DefaultAzureCredential
// (environment, workload identity, managed identity, Azure CLI, ...).
// Construction does not contact the identity service.
func NewDefaultTokenProvider() (*CredentialTokenProvider, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, &Error{Kind: KindAuthentication, Op: "create credential", Err: err}
	}
	return NewCredentialTokenProvider(cred), nil
}

func (p *CredentialTokenProvider) Token(ctx context.Context, audience string) (string, error) {
	tok, err := p.cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{audience}})
	if err != nil {
		return "", err
	}
	if tok.Token == "" {
		return "", fmt.Errorf("identity provider returned an empty token for %s", audience)
	}
	return tok.Token, nil
}

func acquireToken(ctx context.Context, tokens TokenProvider) (string, error) {
	tok, err := tokens.Token(ctx, TokenAudience)
	if err != nil {
		kind := KindAuthentication
		if ctx.Err() != nil {
			kind = KindTransport
		}
		return "", &Error{Kind: kind, Op: "acquire token", Err: err}
	}
	return tok, nil
}
