package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/target/sessionkit/internal/errors"
	"github.com/target/sessionkit/internal/ports"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(Options{BaseURL: server.URL, HTTPClient: server.Client()})
	require.NoError(t, err)
	return client, server
}

func TestNew_RequiresBaseURL(t *testing.T) {
	t.Parallel()

	_, err := New(Options{})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeValidation, apperrors.CodeOf(err))
}

func TestClient_Login_Success(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ada@example.com", body["email"])
		assert.Equal(t, "hunter2", body["password"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token":"issued-token","user":{"id":"42","email":"ada@example.com","name":"Ada Lovelace","role":"admin"}}`))
	}))

	res, err := client.Login(context.Background(), ports.Credentials{Email: "ada@example.com", Password: "hunter2"})
	require.NoError(t, err)
	assert.Equal(t, "issued-token", res.Token)
	assert.Equal(t, "42", res.Identity.ID)
	assert.Equal(t, "Ada Lovelace", res.Identity.DisplayName)
}

func TestClient_Login_RemoteRejection(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"invalid email or password"}`))
	}))

	_, err := client.Login(context.Background(), ports.Credentials{Email: "ada@example.com", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeRemoteRejected, apperrors.CodeOf(err))
	assert.Equal(t, "invalid email or password", apperrors.MessageOf(err))
}

func TestClient_Login_RejectionWithoutMessageBody(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := client.Login(context.Background(), ports.Credentials{Email: "ada@example.com", Password: "pw"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeRemoteRejected, apperrors.CodeOf(err))
	assert.Contains(t, apperrors.MessageOf(err), "502")
}

func TestClient_Login_MissingToken(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))

	_, err := client.Login(context.Background(), ports.Credentials{Email: "ada@example.com", Password: "pw"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeRemoteRejected, apperrors.CodeOf(err))
}

func TestClient_Login_TransportFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	client, err := New(Options{BaseURL: server.URL})
	require.NoError(t, err)
	server.Close() // nothing is listening anymore

	_, err = client.Login(context.Background(), ports.Credentials{Email: "ada@example.com", Password: "pw"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeTransport, apperrors.CodeOf(err))
}

func TestClient_Register(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/signin", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Grace Hopper", body["name"])
		assert.Equal(t, "user", body["role"])

		_, _ = w.Write([]byte(`{"token":"issued-token"}`))
	}))

	res, err := client.Register(context.Background(), ports.RegisterInput{
		Name:     "Grace Hopper",
		Email:    "grace@example.com",
		Password: "hunter2",
		Role:     "user",
	})
	require.NoError(t, err)
	assert.Equal(t, "issued-token", res.Token)
	assert.True(t, res.Identity.IsZero(), "no user payload means token-derived identity later")
}

func TestClient_ExchangeGoogle(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/google", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "provider-token", body["token"])
		assert.Equal(t, "register", body["mode"])

		_, _ = w.Write([]byte(`{"valid":true,"message":"welcome","isNewUser":true,"token":"issued-token"}`))
	}))

	res, err := client.ExchangeGoogle(context.Background(), ports.GoogleExchangeInput{
		ProviderToken: "provider-token",
		Mode:          "register",
	})
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.True(t, res.IsNewUser)
	assert.Equal(t, "issued-token", res.Token)
	assert.Equal(t, "welcome", res.Message)
}

func TestClient_ExchangeGoogle_InvalidIsNotAnError(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"valid":false,"message":"token audience mismatch"}`))
	}))

	res, err := client.ExchangeGoogle(context.Background(), ports.GoogleExchangeInput{ProviderToken: "t", Mode: "login"})
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, "token audience mismatch", res.Message)
}

func TestClient_LogoutRemote(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/logout", r.URL.Path)
		assert.Equal(t, "Bearer the-credential", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	}))

	require.NoError(t, client.LogoutRemote(context.Background(), "the-credential"))
}

func TestClient_FetchProfile(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/users/me", r.URL.Path)
		assert.Equal(t, "Bearer the-credential", r.Header.Get("Authorization"))

		_, _ = w.Write([]byte(`{"id":42,"email":"ada@example.com","name":"Ada Lovelace","role":"admin","avatar":{"url":"https://example.com/ada.png"}}`))
	}))

	identity, err := client.FetchProfile(context.Background(), "the-credential")
	require.NoError(t, err)
	assert.Equal(t, "42", identity.ID)
	assert.Equal(t, "Ada Lovelace", identity.DisplayName)
	assert.Equal(t, "https://example.com/ada.png", identity.AvatarRef)
}

func TestClient_FetchProfile_SessionGoneStatus(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"token expired"}`))
	}))

	_, err := client.FetchProfile(context.Background(), "stale-credential")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeRemoteRejected, apperrors.CodeOf(err))
}
