package googleauth

// Package googleauth builds Google authorization requests for the handshake
// coordinator and optionally verifies provider-issued ID tokens against
// Google's published keys. Verification is off by default: the client trusts
// the issuer's signature and only checks structure and expiry locally, and
// the backend exchange is what establishes trust in the credential.

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"github.com/target/sessionkit/internal/ports"
	"golang.org/x/oauth2"
)

const (
	defaultIssuerURL = "https://accounts.google.com"
	defaultScope     = "openid profile email"

	authURLFallback  = "https://accounts.google.com/o/oauth2/v2/auth"
	tokenURLFallback = "https://oauth2.googleapis.com/token"
)

// Config holds construction parameters for Provider.
type Config struct {
	ClientID    string
	RedirectURL string
	Scope       string

	// VerifyIDToken enables strict verification of provider tokens through
	// OIDC discovery. Requires network access at construction time.
	VerifyIDToken bool

	// IssuerURL overrides the Google issuer, for tests.
	IssuerURL string

	HTTPClient *http.Client // Optional, defaults to a client with a timeout
}

// Provider implements ports.AuthURLBuilder for Google sign-in.
type Provider struct {
	config   *oauth2.Config
	verifier *gooidc.IDTokenVerifier
}

var _ ports.AuthURLBuilder = (*Provider)(nil)

// New constructs a Provider. When VerifyIDToken is set the OIDC discovery
// document is fetched once here and the discovered endpoints are used.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if cfg.RedirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}

	scope := cfg.Scope
	if scope == "" {
		scope = defaultScope
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	p := &Provider{
		config: &oauth2.Config{
			ClientID:    cfg.ClientID,
			RedirectURL: cfg.RedirectURL,
			Scopes:      strings.Fields(scope),
			Endpoint: oauth2.Endpoint{
				AuthURL:  authURLFallback,
				TokenURL: tokenURLFallback,
			},
		},
	}

	if cfg.VerifyIDToken {
		issuer := cfg.IssuerURL
		if issuer == "" {
			issuer = defaultIssuerURL
		}
		oidcCtx := context.WithValue(ctx, oauth2.HTTPClient, httpClient)
		op, err := gooidc.NewProvider(oidcCtx, issuer)
		if err != nil {
			return nil, fmt.Errorf("oidc discovery: %w", err)
		}
		p.verifier = op.Verifier(&gooidc.Config{ClientID: cfg.ClientID})
		p.config.Endpoint = op.Endpoint()
	}

	return p, nil
}

// AuthURL builds the authorization request for one handshake attempt. The
// mode is not encoded in the URL; it travels in the handshake context and is
// sent to the backend during the exchange.
func (p *Provider) AuthURL(in ports.AuthURLInput) string {
	return p.config.AuthCodeURL(in.State,
		oauth2.SetAuthURLParam("nonce", in.Nonce),
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)
}

// VerifyToken checks a provider-issued ID token against Google's keys and
// the expected nonce. A nil verifier (strict mode off) accepts everything;
// structural and expiry checks are the token codec's job.
func (p *Provider) VerifyToken(ctx context.Context, raw, expectedNonce string) error {
	if p.verifier == nil {
		return nil
	}
	idToken, err := p.verifier.Verify(ctx, raw)
	if err != nil {
		return fmt.Errorf("verify id token: %w", err)
	}
	var claims struct {
		Nonce string `json:"nonce"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return fmt.Errorf("parse id token claims: %w", err)
	}
	if expectedNonce != "" && claims.Nonce != expectedNonce {
		return errors.New("invalid nonce")
	}
	return nil
}
