package session

// Package session holds the central session state machine. Exactly one state
// exists per manager; UI collaborators observe it, only the manager mutates
// it. The persisted credential and the in-memory state are mutated under the
// same lock so they never disagree across a call boundary.

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/target/sessionkit/internal/domain/auth"
	apperrors "github.com/target/sessionkit/internal/errors"
	"github.com/target/sessionkit/internal/observability/statsd"
	"github.com/target/sessionkit/internal/ports"
	"github.com/target/sessionkit/internal/token"
)

// CredentialKey is the key-value slot holding the raw credential string.
const CredentialKey = "token"

// LoginResult is the structured outcome of a login or registration attempt.
// Failures are values, not errors; the message is meant for the UI layer.
type LoginResult struct {
	Success bool
	Message string
	Code    apperrors.ErrorCode
}

// OAuthResult is the structured outcome of completing a third-party handshake.
type OAuthResult struct {
	Success   bool
	Message   string
	IsNewUser bool
}

// Options groups dependencies for NewManager.
type Options struct {
	Store   ports.KeyValueStore
	Client  ports.IdentityClient
	Logger  *slog.Logger
	Metrics statsd.Sink

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Manager is the session state machine.
type Manager struct {
	store   ports.KeyValueStore
	client  ports.IdentityClient
	logger  *slog.Logger
	metrics statsd.Sink
	now     func() time.Time

	mu    sync.Mutex
	state auth.State
	// epoch increments on every authoritative transition. In-flight profile
	// enrichment captures the epoch it was started under and is discarded if
	// the epoch moved on, so a late fetch can never resurrect a session.
	epoch     uint64
	observers map[chan auth.State]struct{}

	enrichments sync.WaitGroup
}

// NewManager constructs a manager in the Anonymous state.
func NewManager(opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = statsd.Noop{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		store:     opts.Store,
		client:    opts.Client,
		logger:    logger,
		metrics:   metrics,
		now:       now,
		state:     auth.Anonymous(),
		observers: make(map[chan auth.State]struct{}),
	}
}

// State returns a copy of the current session state.
func (m *Manager) State() auth.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Watch registers an observer of state transitions. The returned cancel
// function removes the observer and closes the channel.
func (m *Manager) Watch() (<-chan auth.State, func()) {
	ch := make(chan auth.State, 8)
	m.mu.Lock()
	m.observers[ch] = struct{}{}
	m.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.observers, ch)
			m.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Wait blocks until all in-flight profile enrichments have settled.
// Used on shutdown and by tests to make async transitions deterministic.
func (m *Manager) Wait() {
	m.enrichments.Wait()
}

// Bootstrap reads the persisted credential on process start. An invalid or
// malformed credential is discarded and the manager stays Anonymous. A valid
// one authenticates optimistically from token-derived identity, then profile
// enrichment replaces it with authoritative data asynchronously; enrichment
// failure is logged, not reverted.
func (m *Manager) Bootstrap(ctx context.Context) {
	raw, ok, err := m.store.Get(ctx, CredentialKey)
	if err != nil {
		m.logger.Warn("read persisted credential failed", slog.String("error", err.Error()))
		return
	}
	if !ok || raw == "" {
		return
	}

	if !token.IsValid(raw, m.now()) {
		if delErr := m.store.Delete(ctx, CredentialKey); delErr != nil {
			m.logger.Warn("discard stale credential failed", slog.String("error", delErr.Error()))
		}
		return
	}

	identity, _ := token.IdentityFromCredential(raw)

	m.mu.Lock()
	m.epoch++
	epoch := m.epoch
	m.state = auth.State{Phase: auth.PhaseAuthenticated, Identity: identity, Credential: raw}
	m.notifyLocked()
	m.mu.Unlock()

	m.metrics.Count("session.bootstrap", 1, nil)
	m.startEnrichment(epoch, raw, identity.ID)
}

// Login authenticates with email and password. Never returns an error; remote
// rejection and connectivity failures come back as a structured result and
// the manager returns to Anonymous.
func (m *Manager) Login(ctx context.Context, email, password string) LoginResult {
	if email == "" || password == "" {
		return LoginResult{Message: "email and password are required", Code: apperrors.ErrCodeValidation}
	}

	m.setAuthenticating()
	res, err := m.client.Login(ctx, ports.Credentials{Email: email, Password: password})
	if err != nil {
		return m.rejectAuth("login", err)
	}
	return m.acceptCredential(ctx, "login", res.Token, res.Identity)
}

// Register creates an account. Same contract shape as Login.
func (m *Manager) Register(ctx context.Context, name, email, password, role string) LoginResult {
	if name == "" || email == "" || password == "" {
		return LoginResult{Message: "name, email and password are required", Code: apperrors.ErrCodeValidation}
	}

	m.setAuthenticating()
	res, err := m.client.Register(ctx, ports.RegisterInput{Name: name, Email: email, Password: password, Role: role})
	if err != nil {
		return m.rejectAuth("register", err)
	}
	return m.acceptCredential(ctx, "register", res.Token, res.Identity)
}

// CompleteOAuth is the unified entry point used by the handshake coordinator.
// The isNewUser flag is reported back for caller messaging; the manager does
// not re-derive that distinction.
func (m *Manager) CompleteOAuth(ctx context.Context, identity auth.Identity, credential string, isNewUser bool) OAuthResult {
	if credential == "" {
		return OAuthResult{Message: "credential is required"}
	}
	if !token.IsValid(credential, m.now()) {
		return OAuthResult{Message: "credential is expired or malformed"}
	}

	res := m.acceptCredential(ctx, "oauth", credential, identity)
	if !res.Success {
		return OAuthResult{Message: res.Message}
	}
	return OAuthResult{Success: true, IsNewUser: isNewUser}
}

// Logout is the immediate, synchronous, local-only transition to Anonymous.
// It clears the persisted credential within the same lock hold.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	m.epoch++
	m.state = auth.Anonymous()
	if err := m.store.Delete(ctx, CredentialKey); err != nil {
		m.logger.Warn("clear persisted credential failed", slog.String("error", err.Error()))
	}
	m.notifyLocked()
	m.mu.Unlock()

	m.metrics.Count("session.logout", 1, nil)
}

// LogoutRemote notifies the identity service of logout, best-effort, and
// always performs the local logout regardless of the remote outcome. Local
// state consistency takes precedence over remote acknowledgment.
func (m *Manager) LogoutRemote(ctx context.Context) {
	m.mu.Lock()
	credential := m.state.Credential
	m.mu.Unlock()

	if credential != "" {
		if err := m.client.LogoutRemote(ctx, credential); err != nil {
			m.logger.Warn("remote logout failed", slog.String("error", err.Error()))
		}
	}
	m.Logout(ctx)
}

// ForceLogout is invoked by the request guard when the server reports the
// session is gone. The state passes through Invalidated so observers see the
// reason, then collapses to Anonymous.
func (m *Manager) ForceLogout(ctx context.Context, reason string) {
	m.mu.Lock()
	m.epoch++
	m.state = auth.State{Phase: auth.PhaseInvalidated, Reason: reason}
	m.notifyLocked()
	m.state = auth.Anonymous()
	if err := m.store.Delete(ctx, CredentialKey); err != nil {
		m.logger.Warn("clear persisted credential failed", slog.String("error", err.Error()))
	}
	m.notifyLocked()
	m.mu.Unlock()

	m.metrics.Count("session.forced_logout", 1, nil)
}

// UpdateIdentity merges a partial identity into the current Authenticated
// state. No-op if not authenticated.
func (m *Manager) UpdateIdentity(patch auth.IdentityPatch) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Phase != auth.PhaseAuthenticated {
		return
	}
	m.state.Identity = m.state.Identity.Apply(patch)
	m.notifyLocked()
}

func (m *Manager) setAuthenticating() {
	m.mu.Lock()
	m.state = auth.State{Phase: auth.PhaseAuthenticating}
	m.notifyLocked()
	m.mu.Unlock()
}

// rejectAuth maps a remote failure to a structured result and returns the
// manager to Anonymous.
func (m *Manager) rejectAuth(flow string, err error) LoginResult {
	m.mu.Lock()
	m.state = auth.Anonymous()
	m.notifyLocked()
	m.mu.Unlock()

	code := apperrors.CodeOf(err)
	message := apperrors.MessageOf(err)
	if code == apperrors.ErrCodeTransport {
		message = "could not reach the sign-in service"
	}
	m.logger.Info("authentication rejected",
		slog.String("flow", flow),
		slog.String("code", string(code)),
		slog.String("error", err.Error()))
	m.metrics.Count("session.auth_rejected", 1, map[string]string{"flow": flow})

	return LoginResult{Message: message, Code: code}
}

// acceptCredential validates and persists a freshly issued credential,
// transitions to Authenticated, and kicks off async profile enrichment.
func (m *Manager) acceptCredential(ctx context.Context, flow, credential string, identity auth.Identity) LoginResult {
	if !token.IsValid(credential, m.now()) {
		m.mu.Lock()
		m.state = auth.Anonymous()
		m.notifyLocked()
		m.mu.Unlock()
		return LoginResult{Message: "service returned an unusable credential", Code: apperrors.ErrCodeValidation}
	}

	if identity.IsZero() {
		identity, _ = token.IdentityFromCredential(credential)
	}

	m.mu.Lock()
	if err := m.store.Set(ctx, CredentialKey, credential); err != nil {
		m.state = auth.Anonymous()
		m.notifyLocked()
		m.mu.Unlock()
		m.logger.Error("persist credential failed", slog.String("error", err.Error()))
		return LoginResult{Message: "could not persist the session", Code: apperrors.ErrCodeInternal}
	}
	m.epoch++
	epoch := m.epoch
	m.state = auth.State{Phase: auth.PhaseAuthenticated, Identity: identity, Credential: credential}
	m.notifyLocked()
	m.mu.Unlock()

	m.metrics.Count("session.authenticated", 1, map[string]string{"flow": flow})
	m.startEnrichment(epoch, credential, identity.ID)
	return LoginResult{Success: true}
}

// startEnrichment fetches the authoritative profile in the background and
// applies it only if the session is still the one it was started for.
func (m *Manager) startEnrichment(epoch uint64, credential, userID string) {
	m.enrichments.Add(1)
	go func() {
		defer m.enrichments.Done()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		profile, err := m.client.FetchProfile(ctx, credential)
		if err != nil {
			m.logger.Warn("profile enrichment failed",
				slog.String("user_id", userID),
				slog.String("error", err.Error()))
			return
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		if m.epoch != epoch || m.state.Phase != auth.PhaseAuthenticated {
			m.logger.Debug("discarding stale profile enrichment", slog.String("user_id", userID))
			return
		}
		if profile.ID != "" && profile.ID != m.state.Identity.ID {
			m.logger.Debug("discarding enrichment for different identity", slog.String("user_id", profile.ID))
			return
		}
		if profile.ID == "" {
			profile.ID = m.state.Identity.ID
		}
		m.state.Identity = profile
		m.notifyLocked()
	}()
}

// notifyLocked fans the current state out to observers. Callers hold m.mu.
// Delivery is non-blocking; a full observer buffer drops the update.
func (m *Manager) notifyLocked() {
	for ch := range m.observers {
		select {
		case ch <- m.state:
		default:
		}
	}
}
