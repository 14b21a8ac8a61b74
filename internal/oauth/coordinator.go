package oauth

// Package oauth runs the third-party handshake: it opens an isolated child
// context on the provider's authorization URL, waits for exactly one message
// from it, validates the message origin, exchanges the provider token with
// the backend, and feeds the result into the session manager. Every exit
// path tears the attempt down: the message wait ends, the closure watcher
// stops, and the window handle is dropped.

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/target/sessionkit/internal/domain/auth"
	"github.com/target/sessionkit/internal/events"
	"github.com/target/sessionkit/internal/observability/statsd"
	"github.com/target/sessionkit/internal/ports"
	"github.com/target/sessionkit/internal/session"
	"github.com/target/sessionkit/internal/token"
)

// Mode selects login or register semantics; the backend decides what each
// means server-side.
type Mode string

const (
	ModeLogin    Mode = "login"
	ModeRegister Mode = "register"
)

// Status classifies how a handshake attempt ended.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
	StatusBlocked   Status = "blocked"
)

// Outcome is the terminal result of one handshake attempt. Cancellation
// (user closed the window, timeout, context cancel) is benign, not an error.
type Outcome struct {
	Status    Status
	Message   string
	IsNewUser bool
	Identity  auth.Identity
}

// SessionCompleter is the slice of session.Manager the coordinator needs.
type SessionCompleter interface {
	CompleteOAuth(ctx context.Context, identity auth.Identity, credential string, isNewUser bool) session.OAuthResult
}

// TokenVerifier optionally checks provider tokens against the issuer's keys
// and the attempt's nonce. Implemented by googleauth.Provider.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, raw, expectedNonce string) error
}

const (
	defaultPollInterval = 500 * time.Millisecond
	// defaultTimeout bounds an abandoned attempt that neither completes nor
	// is detected as closed. Timeouts surface as cancellation.
	defaultTimeout = 5 * time.Minute
)

// Options groups dependencies for NewCoordinator.
type Options struct {
	AuthURLs ports.AuthURLBuilder
	Windows  ports.WindowOpener
	Client   ports.IdentityClient
	Sessions SessionCompleter
	Verifier TokenVerifier // optional strict provider-token verification
	Bus      *events.Bus
	Logger   *slog.Logger
	Metrics  statsd.Sink

	// Origin is the application's own origin. Messages from any other
	// origin are discarded unconditionally.
	Origin string

	PollInterval time.Duration
	Timeout      time.Duration
}

// Coordinator manages one handshake attempt at a time per Start call.
type Coordinator struct {
	authURLs ports.AuthURLBuilder
	windows  ports.WindowOpener
	client   ports.IdentityClient
	sessions SessionCompleter
	verifier TokenVerifier
	bus      *events.Bus
	logger   *slog.Logger
	metrics  statsd.Sink

	origin       string
	pollInterval time.Duration
	timeout      time.Duration
}

// handshakeContext is the ephemeral state of one attempt. It is dropped when
// the attempt resolves, on every exit path.
type handshakeContext struct {
	id    string
	mode  Mode
	state string
	nonce string
}

// NewCoordinator constructs a Coordinator.
func NewCoordinator(opts Options) *Coordinator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = statsd.Noop{}
	}
	poll := opts.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Coordinator{
		authURLs:     opts.AuthURLs,
		windows:      opts.Windows,
		client:       opts.Client,
		sessions:     opts.Sessions,
		verifier:     opts.Verifier,
		bus:          opts.Bus,
		logger:       logger,
		metrics:      metrics,
		origin:       opts.Origin,
		pollInterval: poll,
		timeout:      timeout,
	}
}

// Start runs one handshake attempt to completion. It blocks until the
// attempt resolves; callers wanting concurrency run it in a goroutine.
func (c *Coordinator) Start(ctx context.Context, mode Mode) Outcome {
	state, err := randomString(32)
	if err != nil {
		return c.fail("generate anti-forgery state", err)
	}
	nonce, err := randomString(32)
	if err != nil {
		return c.fail("generate nonce", err)
	}

	hc := handshakeContext{id: uuid.NewString(), mode: mode, state: state, nonce: nonce}
	authURL := c.authURLs.AuthURL(ports.AuthURLInput{State: state, Nonce: nonce, Mode: string(mode)})

	// Blocked windows fail immediately, before any listener exists.
	win, err := c.windows.Open(ctx, authURL)
	if err != nil {
		if errors.Is(err, ports.ErrWindowBlocked) {
			c.logger.Info("auth window blocked", slog.String("attempt", hc.id))
			c.metrics.Count("handshake.blocked", 1, nil)
			return c.publish(Outcome{Status: StatusBlocked, Message: "the sign-in window could not be opened"})
		}
		return c.fail("open auth window", err)
	}
	defer win.Close()

	outcome := c.wait(ctx, hc, win)
	c.metrics.Count("handshake.resolved", 1, map[string]string{"status": string(outcome.Status)})
	return c.publish(outcome)
}

// wait runs the one-shot message wait and the closure poll watcher. Both
// resolution paths stop the other.
func (c *Coordinator) wait(ctx context.Context, hc handshakeContext, win ports.Window) Outcome {
	poll := time.NewTicker(c.pollInterval)
	defer poll.Stop()
	deadline := time.NewTimer(c.timeout)
	defer deadline.Stop()

	for {
		select {
		case msg, ok := <-win.Messages():
			if !ok {
				return Outcome{Status: StatusCancelled}
			}
			if msg.Origin != c.origin {
				c.logger.Warn("discarding handshake message from foreign origin",
					slog.String("attempt", hc.id),
					slog.String("origin", msg.Origin))
				continue
			}
			if msg.State != "" && msg.State != hc.state {
				c.logger.Warn("discarding handshake message with mismatched state",
					slog.String("attempt", hc.id))
				continue
			}
			switch msg.Type {
			case ports.MessageTypeError:
				message := msg.Message
				if message == "" {
					message = "the identity provider reported an error"
				}
				return Outcome{Status: StatusFailed, Message: message}
			case ports.MessageTypeSuccess:
				return c.complete(ctx, hc, msg.Token)
			default:
				// Unknown types are not part of the protocol; keep waiting.
				continue
			}

		case <-poll.C:
			if win.Closed() {
				// Closed without a completion message: treated as the user
				// abandoning the attempt, not as an error.
				c.logger.Debug("auth window closed by user", slog.String("attempt", hc.id))
				return Outcome{Status: StatusCancelled}
			}

		case <-deadline.C:
			c.logger.Info("handshake attempt timed out", slog.String("attempt", hc.id))
			return Outcome{Status: StatusCancelled}

		case <-ctx.Done():
			return Outcome{Status: StatusCancelled}
		}
	}
}

// complete decodes the provider token locally (it is self-contained; no
// network call needed), exchanges it with the backend, and hands the issued
// credential to the session manager.
func (c *Coordinator) complete(ctx context.Context, hc handshakeContext, providerToken string) Outcome {
	claims, ok := token.Decode(providerToken)
	if !ok {
		return Outcome{Status: StatusFailed, Message: "the provider returned a malformed token"}
	}
	if c.verifier != nil {
		if err := c.verifier.VerifyToken(ctx, providerToken, hc.nonce); err != nil {
			c.logger.Warn("provider token verification failed",
				slog.String("attempt", hc.id),
				slog.String("error", err.Error()))
			return Outcome{Status: StatusFailed, Message: "the provider token failed verification"}
		}
	}
	provisional := auth.Identity{
		ID:          claims.Subject,
		Email:       claims.Email,
		DisplayName: claims.DisplayName,
	}

	res, err := c.client.ExchangeGoogle(ctx, ports.GoogleExchangeInput{
		ProviderToken: providerToken,
		Mode:          string(hc.mode),
	})
	if err != nil {
		c.logger.Warn("backend exchange failed",
			slog.String("attempt", hc.id),
			slog.String("error", err.Error()))
		return Outcome{Status: StatusFailed, Message: "could not verify the sign-in with the service"}
	}
	if !res.Valid {
		return Outcome{Status: StatusFailed, Message: res.Message}
	}

	completion := c.sessions.CompleteOAuth(ctx, provisional, res.Token, res.IsNewUser)
	if !completion.Success {
		return Outcome{Status: StatusFailed, Message: completion.Message}
	}

	return Outcome{
		Status:    StatusSuccess,
		Message:   res.Message,
		IsNewUser: res.IsNewUser,
		Identity:  provisional,
	}
}

// publish signals completion to listening collaborators and returns the
// outcome unchanged. Cancellation is silent.
func (c *Coordinator) publish(outcome Outcome) Outcome {
	if c.bus != nil && outcome.Status != StatusCancelled {
		c.bus.Publish(events.Event{
			Topic:   events.TopicGoogleAuth,
			Reason:  outcome.Message,
			Payload: outcome,
		})
	}
	return outcome
}

func (c *Coordinator) fail(what string, err error) Outcome {
	c.logger.Error(what+" failed", slog.String("error", err.Error()))
	return c.publish(Outcome{Status: StatusFailed, Message: "could not start the sign-in attempt"})
}

// randomString generates a cryptographically secure URL-safe random string of
// exact length.
func randomString(length int) (string, error) {
	if length <= 0 {
		return "", nil
	}
	nBytes := (length*3 + 3) / 4
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := base64.RawURLEncoding.EncodeToString(b)
	for len(s) < length {
		extra := make([]byte, 1)
		if _, err := rand.Read(extra); err != nil {
			return "", err
		}
		s += base64.RawURLEncoding.EncodeToString(extra)
	}
	return s[:length], nil
}
