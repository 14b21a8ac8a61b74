package googleauth

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/sessionkit/internal/ports"
)

func TestNew_RequiresClientIDAndRedirect(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{RedirectURL: "http://127.0.0.1:53682/callback"})
	assert.Error(t, err)

	_, err = New(context.Background(), Config{ClientID: "client-123"})
	assert.Error(t, err)
}

func TestProvider_AuthURL(t *testing.T) {
	t.Parallel()

	provider, err := New(context.Background(), Config{
		ClientID:    "client-123.apps.googleusercontent.com",
		RedirectURL: "http://127.0.0.1:53682/callback",
	})
	require.NoError(t, err)

	raw := provider.AuthURL(ports.AuthURLInput{State: "state-abc", Nonce: "nonce-xyz", Mode: "login"})

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "accounts.google.com", u.Host)

	q := u.Query()
	assert.Equal(t, "client-123.apps.googleusercontent.com", q.Get("client_id"))
	assert.Equal(t, "http://127.0.0.1:53682/callback", q.Get("redirect_uri"))
	assert.Equal(t, "state-abc", q.Get("state"))
	assert.Equal(t, "nonce-xyz", q.Get("nonce"))
	assert.Equal(t, "select_account", q.Get("prompt"))
	assert.Equal(t, "openid profile email", q.Get("scope"))
	assert.Equal(t, "code", q.Get("response_type"))
}

func TestProvider_AuthURL_CustomScope(t *testing.T) {
	t.Parallel()

	provider, err := New(context.Background(), Config{
		ClientID:    "client-123",
		RedirectURL: "http://127.0.0.1:53682/callback",
		Scope:       "openid email",
	})
	require.NoError(t, err)

	u, err := url.Parse(provider.AuthURL(ports.AuthURLInput{State: "s"}))
	require.NoError(t, err)
	assert.Equal(t, "openid email", u.Query().Get("scope"))
}

func TestProvider_VerifyToken_StrictModeOff(t *testing.T) {
	t.Parallel()

	provider, err := New(context.Background(), Config{
		ClientID:    "client-123",
		RedirectURL: "http://127.0.0.1:53682/callback",
	})
	require.NoError(t, err)

	// With strict verification off every token is accepted here; structure
	// and expiry are checked by the token codec instead.
	assert.NoError(t, provider.VerifyToken(context.Background(), "anything", "any-nonce"))
}
