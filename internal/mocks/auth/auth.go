// Package auth contains simple hand-written test doubles for session ports.
// These are lightweight and suitable for unit tests without codegen.
package auth

import (
	"context"
	"sync"

	domainauth "github.com/target/sessionkit/internal/domain/auth"
	"github.com/target/sessionkit/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.IdentityClient = (*MockIdentityClient)(nil)
	_ ports.WindowOpener   = (*MockOpener)(nil)
	_ ports.Window         = (*MockWindow)(nil)
	_ ports.AuthURLBuilder = StaticAuthURLBuilder("")
)

// MockIdentityClient simulates the identity service with overridable hooks.
type MockIdentityClient struct {
	LoginFunc          func(ctx context.Context, creds ports.Credentials) (ports.AuthResult, error)
	RegisterFunc       func(ctx context.Context, in ports.RegisterInput) (ports.AuthResult, error)
	ExchangeGoogleFunc func(ctx context.Context, in ports.GoogleExchangeInput) (ports.GoogleExchangeResult, error)
	LogoutRemoteFunc   func(ctx context.Context, credential string) error
	FetchProfileFunc   func(ctx context.Context, credential string) (domainauth.Identity, error)

	// DefaultToken is returned by Login/Register when no hook is set.
	DefaultToken string
	// DefaultProfile is returned by FetchProfile when no hook is set.
	DefaultProfile domainauth.Identity
}

func (m *MockIdentityClient) Login(ctx context.Context, creds ports.Credentials) (ports.AuthResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, creds)
	}
	return ports.AuthResult{Token: m.DefaultToken}, nil
}

func (m *MockIdentityClient) Register(ctx context.Context, in ports.RegisterInput) (ports.AuthResult, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, in)
	}
	return ports.AuthResult{Token: m.DefaultToken}, nil
}

func (m *MockIdentityClient) ExchangeGoogle(ctx context.Context, in ports.GoogleExchangeInput) (ports.GoogleExchangeResult, error) {
	if m.ExchangeGoogleFunc != nil {
		return m.ExchangeGoogleFunc(ctx, in)
	}
	return ports.GoogleExchangeResult{Valid: true, Token: m.DefaultToken}, nil
}

func (m *MockIdentityClient) LogoutRemote(ctx context.Context, credential string) error {
	if m.LogoutRemoteFunc != nil {
		return m.LogoutRemoteFunc(ctx, credential)
	}
	return nil
}

func (m *MockIdentityClient) FetchProfile(ctx context.Context, credential string) (domainauth.Identity, error) {
	if m.FetchProfileFunc != nil {
		return m.FetchProfileFunc(ctx, credential)
	}
	return m.DefaultProfile, nil
}

// MockWindow is a scriptable child context. Tests post messages into it and
// flip the closed flag to simulate the user closing it.
type MockWindow struct {
	mu       sync.Mutex
	closed   bool
	messages chan ports.AuthMessage
}

// NewMockWindow creates an open window with a buffered message channel.
func NewMockWindow() *MockWindow {
	return &MockWindow{messages: make(chan ports.AuthMessage, 4)}
}

func (w *MockWindow) Messages() <-chan ports.AuthMessage { return w.messages }

func (w *MockWindow) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

func (w *MockWindow) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
}

// Post delivers a message to the window's listener.
func (w *MockWindow) Post(msg ports.AuthMessage) {
	w.messages <- msg
}

// MockOpener hands out windows, or refuses when Blocked is set.
type MockOpener struct {
	OpenFunc func(ctx context.Context, authURL string) (ports.Window, error)

	// Blocked makes Open fail with ports.ErrWindowBlocked.
	Blocked bool

	// LastURL records the most recent authorization URL.
	LastURL string

	// Window is handed out when no hook is set; defaults to a fresh one.
	Window *MockWindow
}

func (o *MockOpener) Open(ctx context.Context, authURL string) (ports.Window, error) {
	o.LastURL = authURL
	if o.OpenFunc != nil {
		return o.OpenFunc(ctx, authURL)
	}
	if o.Blocked {
		return nil, ports.ErrWindowBlocked
	}
	if o.Window == nil {
		o.Window = NewMockWindow()
	}
	return o.Window, nil
}

// StaticAuthURLBuilder renders a deterministic authorization URL.
type StaticAuthURLBuilder string

func (b StaticAuthURLBuilder) AuthURL(in ports.AuthURLInput) string {
	return string(b) + "?state=" + in.State + "&nonce=" + in.Nonce
}
