package foundry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCredential struct {
	token  string
	err    error
	scopes []string
}

func (f *fakeCredential) GetToken(_ context.Context, opts policy.TokenRequestOptions) (azcore.AccessToken, error) {
	f.scopes = opts.Scopes
	if f.err != nil {
		return azcore.AccessToken{}, f.err
	}
	return azcore.AccessToken{Token: f.token, ExpiresOn: time.Now().Add(time.Hour)}, nil
}

func TestCredentialTokenProvider(t *testing.T) {
	cred := &fakeCredential{token: "tok"}
	p := NewCredentialTokenProvider(cred)

	tok, err := p.Token(context.Background(), TokenAudience)
	require.NoError(t, err)
	assert.Equal(t, "tok", tok)
	assert.Equal(t, []string{"https://ai.azure.com/.default"}, cred.scopes)
}

func TestCredentialTokenProviderEmptyToken(t *testing.T) {
	p := NewCredentialTokenProvider(&fakeCredential{})

	_, err := p.Token(context.Background(), TokenAudience)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty token")
}

func TestAcquireToken(t *testing.T) {
	t.Run("failure is authentication", func(t *testing.T) {
		p := NewCredentialTokenProvider(&fakeCredential{err: errors.New("no credential available")})

		_, err := acquireToken(context.Background(), p)
		require.Error(t, err)
		assert.Equal(t, KindAuthentication, KindOf(err))
		assert.Equal(t, "no credential available", err.Error())
	})

	t.Run("cancelled context is transport", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		p := TokenProviderFunc(func(ctx context.Context, _ string) (string, error) {
			return "", ctx.Err()
		})

		_, err := acquireToken(ctx, p)
		assert.Equal(t, KindTransport, KindOf(err))
	})

	t.Run("audience", func(t *testing.T) {
		var got string
		p := TokenProviderFunc(func(_ context.Context, audience string) (string, error) {
			got = audience
			return "tok", nil
		})

		tok, err := acquireToken(context.Background(), p)
		require.NoError(t, err)
		assert.Equal(t, "tok", tok)
		assert.Equal(t, TokenAudience, got)
	})
}
