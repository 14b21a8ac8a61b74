package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/target/sessionkit/config"
	"github.com/target/sessionkit/internal/adapters/googleauth"
	"github.com/target/sessionkit/internal/adapters/identity"
	"github.com/target/sessionkit/internal/adapters/loopback"
	"github.com/target/sessionkit/internal/avatarcache"
	"github.com/target/sessionkit/internal/events"
	"github.com/target/sessionkit/internal/guard"
	"github.com/target/sessionkit/internal/oauth"
	"github.com/target/sessionkit/internal/observability/statsd"
	"github.com/target/sessionkit/internal/ports"
	"github.com/target/sessionkit/internal/session"
)

// Stack is the assembled session layer handed to the application.
type Stack struct {
	Bus         *events.Bus
	Sessions    *session.Manager
	Coordinator *oauth.Coordinator
	Avatars     *avatarcache.Service

	// HTTPClient routes through the request guard; collaborators issuing
	// their own authenticated calls should use it.
	HTTPClient *http.Client
}

// StackDeps groups dependencies for NewStack.
type StackDeps struct {
	Config  *config.AppConfig
	Store   ports.KeyValueStore
	Logger  *slog.Logger
	Metrics statsd.Sink
}

// NewStack wires the session layer together: the identity client's transport
// carries the request guard, the guard terminates the session manager, and
// the coordinator feeds completed handshakes back into the manager.
func NewStack(ctx context.Context, deps *StackDeps) (*Stack, error) {
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = statsd.Noop{}
	}

	bus := events.NewBus(logger)

	// The guard wraps every authenticated call. Its terminator is assigned
	// below, once the manager exists; the two reference each other at
	// runtime but construction stays acyclic.
	transport := &guard.Transport{
		Bus:     bus,
		Logger:  logger,
		Metrics: metrics,
	}
	httpClient := &http.Client{
		Transport: transport,
		Timeout:   cfg.Identity.Timeout,
	}

	client, err := identity.New(identity.Options{
		BaseURL:    cfg.Identity.BaseURL,
		HTTPClient: httpClient,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("identity client: %w", err)
	}

	manager := session.NewManager(session.Options{
		Store:   deps.Store,
		Client:  client,
		Logger:  logger,
		Metrics: metrics,
	})
	transport.Sessions = manager

	var coordinator *oauth.Coordinator
	if cfg.Google.ClientID != "" {
		provider, err := googleauth.New(ctx, googleauth.Config{
			ClientID:      cfg.Google.ClientID,
			RedirectURL:   cfg.Google.RedirectURL,
			Scope:         cfg.Google.Scope,
			VerifyIDToken: cfg.Google.VerifyIDToken,
			IssuerURL:     cfg.Google.IssuerURL,
		})
		if err != nil {
			return nil, fmt.Errorf("google provider: %w", err)
		}

		opener := loopback.NewOpener(loopback.OpenerOptions{
			Addr:   cfg.Handshake.ListenAddr,
			Logger: logger,
		})

		coordinator = oauth.NewCoordinator(oauth.Options{
			AuthURLs:     provider,
			Windows:      opener,
			Client:       client,
			Sessions:     manager,
			Verifier:     provider,
			Bus:          bus,
			Logger:       logger,
			Metrics:      metrics,
			Origin:       cfg.Handshake.Origin,
			PollInterval: cfg.Handshake.PollInterval,
			Timeout:      cfg.Handshake.Timeout,
		})
	} else {
		logger.Info("google sign-in disabled, no client ID configured")
	}

	cache := avatarcache.New(ctx, avatarcache.Options{
		Store:    deps.Store,
		TTL:      cfg.AvatarCache.TTL,
		Capacity: cfg.AvatarCache.Capacity,
		Logger:   logger,
		Metrics:  metrics,
	})
	deriver := avatarcache.NewDeriver(avatarcache.DeriverOptions{
		SizeThreshold: cfg.AvatarCache.SizeThreshold,
		JPEGQuality:   cfg.AvatarCache.JPEGQuality,
		Logger:        logger,
	})

	return &Stack{
		Bus:         bus,
		Sessions:    manager,
		Coordinator: coordinator,
		Avatars:     avatarcache.NewService(cache, deriver, logger),
		HTTPClient:  httpClient,
	}, nil
}
