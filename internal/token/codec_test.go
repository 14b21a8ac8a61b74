package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/sessionkit/internal/domain/auth"
)

func mintToken(t *testing.T, claims Claims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestDecode_ValidToken(t *testing.T) {
	t.Parallel()

	raw := mintToken(t, Claims{
		DisplayName: "Ada Lovelace",
		Email:       "ada@example.com",
		Role:        "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	claims, ok := Decode(raw)
	require.True(t, ok)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, "Ada Lovelace", claims.DisplayName)
	assert.Equal(t, "admin", claims.Role)
}

func TestDecode_MalformedInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		credential string
	}{
		{name: "empty", credential: ""},
		{name: "not a token", credential: "hello world"},
		{name: "two parts", credential: "aaaa.bbbb"},
		{name: "three garbage parts", credential: "aaaa.bbbb.cccc"},
		{name: "four parts", credential: "a.b.c.d"},
		{name: "valid structure invalid json", credential: "eyJhbGciOiJIUzI1NiJ9.bm90anNvbg.sig"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			claims, ok := Decode(tt.credential)
			assert.False(t, ok)
			assert.Nil(t, claims)
		})
	}
}

func TestIsValid_ExpiryBoundary(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		exp   time.Time
		valid bool
	}{
		{name: "expires in the future", exp: now.Add(time.Minute), valid: true},
		{name: "expiry equals now", exp: now, valid: false},
		{name: "expired in the past", exp: now.Add(-time.Minute), valid: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			raw := mintToken(t, Claims{RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "42",
				ExpiresAt: jwt.NewNumericDate(tt.exp),
			}})
			assert.Equal(t, tt.valid, IsValid(raw, now))
		})
	}
}

func TestIsValid_NoExpiryClaim(t *testing.T) {
	t.Parallel()

	raw := mintToken(t, Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "42"}})
	assert.False(t, IsValid(raw, time.Now()))
}

func TestIsValid_MalformedCredential(t *testing.T) {
	t.Parallel()

	assert.False(t, IsValid("not-a-token", time.Now()))
	assert.False(t, IsValid("", time.Now()))
}

func TestIdentityFromCredential(t *testing.T) {
	t.Parallel()

	raw := mintToken(t, Claims{
		DisplayName: "Grace Hopper",
		Email:       "grace@example.com",
		Role:        "user",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "7",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	identity, ok := IdentityFromCredential(raw)
	require.True(t, ok)
	assert.Equal(t, auth.Identity{
		ID:          "7",
		Email:       "grace@example.com",
		DisplayName: "Grace Hopper",
		Role:        auth.RoleUser,
	}, identity)
}

func TestIdentityFromCredential_Malformed(t *testing.T) {
	t.Parallel()

	identity, ok := IdentityFromCredential("garbage")
	assert.False(t, ok)
	assert.True(t, identity.IsZero())
}
