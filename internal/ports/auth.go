package ports

// Package ports defines interfaces (hexagonal ports) for session-related
// behavior. Implementations live in internal/adapters; orchestration in
// internal/session, internal/oauth, internal/guard and internal/avatarcache.

import (
	"context"
	"errors"

	"github.com/target/sessionkit/internal/domain/auth"
)

// KeyValueStore is the persistent local key-value medium shared by the
// credential slot and the avatar cache. Writes are whole-value replacements,
// never partial patches, so last-writer-wins stays structurally safe.
type KeyValueStore interface {
	// Get returns the stored value and whether the key was present.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Credentials carries a password login request.
type Credentials struct {
	Email    string
	Password string
}

// RegisterInput carries an account creation request.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// AuthResult is the identity service's answer to a login or registration.
// Identity is optional; when zero the caller derives it from the token.
type AuthResult struct {
	Token    string
	Identity auth.Identity
}

// GoogleExchangeInput carries a provider-issued token to the backend exchange.
// Mode tells the backend whether to apply login or register semantics.
type GoogleExchangeInput struct {
	ProviderToken string
	Mode          string
}

// GoogleExchangeResult is the backend's answer to a Google token exchange.
type GoogleExchangeResult struct {
	Valid     bool
	Message   string
	IsNewUser bool
	Token     string
}

// IdentityClient talks to the remote identity service.
type IdentityClient interface {
	Login(ctx context.Context, creds Credentials) (AuthResult, error)
	Register(ctx context.Context, in RegisterInput) (AuthResult, error)
	ExchangeGoogle(ctx context.Context, in GoogleExchangeInput) (GoogleExchangeResult, error)

	// LogoutRemote notifies the service of logout. Best-effort; callers
	// treat failures as non-fatal.
	LogoutRemote(ctx context.Context, credential string) error

	// FetchProfile retrieves the authoritative profile for the credential's
	// subject. A 401/403 response is the guard's signal, not this client's.
	FetchProfile(ctx context.Context, credential string) (auth.Identity, error)
}

// AuthURLInput carries the anti-forgery values for an authorization request.
type AuthURLInput struct {
	State string
	Nonce string
	Mode  string
}

// AuthURLBuilder builds the provider authorization URL for a handshake attempt.
type AuthURLBuilder interface {
	AuthURL(in AuthURLInput) string
}

// Message type discriminators on the cross-context channel.
const (
	MessageTypeSuccess = "GOOGLE_AUTH_SUCCESS"
	MessageTypeError   = "GOOGLE_AUTH_ERROR"
)

// AuthMessage is one message received from the child context.
// Origin is stamped by the window adapter and checked by the coordinator
// against the application's own origin.
type AuthMessage struct {
	Origin  string
	Type    string
	Token   string
	State   string
	Message string
}

// Window is an isolated child execution context running a provider handshake.
type Window interface {
	// Messages yields messages posted back by the child context. The channel
	// is closed when the window is closed.
	Messages() <-chan AuthMessage

	// Closed reports whether the window has been closed by the user or torn
	// down. Polled by the coordinator's closure watcher.
	Closed() bool

	// Close tears the window down. Safe to call multiple times.
	Close()
}

// ErrWindowBlocked is returned by openers when the host refuses to open a
// child context at all. Reported before any listener is registered.
var ErrWindowBlocked = errors.New("auth window blocked by host")

// WindowOpener opens an authorization URL in a child execution context.
type WindowOpener interface {
	Open(ctx context.Context, authURL string) (Window, error)
}
