package identity

// Package identity is the HTTP adapter for the remote identity service.
// Non-2xx answers carrying a message body are mapped to remote-rejection
// errors so the UI layer can localize them; connectivity failures are mapped
// to transport errors and kept distinct from authoritative session loss.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/target/sessionkit/internal/domain/auth"
	apperrors "github.com/target/sessionkit/internal/errors"
	"github.com/target/sessionkit/internal/ports"
)

const defaultTimeout = 15 * time.Second

// maxErrorBody bounds how much of an error response body is read.
const maxErrorBody = 64 * 1024

// Options groups construction parameters for Client.
type Options struct {
	BaseURL string

	// HTTPClient carries the request guard transport when wired through
	// bootstrap. Defaults to a plain client with a request timeout.
	HTTPClient *http.Client

	// Mapper translates the service's profile document into an Identity.
	// Defaults to DefaultProfileMapping.
	Mapper *ProfileMapper

	Logger *slog.Logger
}

// Client implements ports.IdentityClient over JSON/HTTPS.
type Client struct {
	baseURL    string
	httpClient *http.Client
	mapper     *ProfileMapper
	logger     *slog.Logger
}

var _ ports.IdentityClient = (*Client)(nil)

// New constructs a Client.
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, apperrors.Validation("identity service base URL is required")
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	mapper := opts.Mapper
	if mapper == nil {
		var err error
		mapper, err = NewProfileMapper(DefaultProfileMapping())
		if err != nil {
			return nil, err
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		httpClient: httpClient,
		mapper:     mapper,
		logger:     logger,
	}, nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type authResponse struct {
	Token string          `json:"token"`
	User  json.RawMessage `json:"user"`
}

// Login exchanges email/password for an application credential.
func (c *Client) Login(ctx context.Context, creds ports.Credentials) (ports.AuthResult, error) {
	return c.authCall(ctx, "/auth/login", loginRequest{Email: creds.Email, Password: creds.Password})
}

// Register creates an account and returns the issued credential.
func (c *Client) Register(ctx context.Context, in ports.RegisterInput) (ports.AuthResult, error) {
	return c.authCall(ctx, "/auth/signin", registerRequest{
		Email:    in.Email,
		Name:     in.Name,
		Password: in.Password,
		Role:     in.Role,
	})
}

func (c *Client) authCall(ctx context.Context, path string, payload any) (ports.AuthResult, error) {
	var body authResponse
	if err := c.postJSON(ctx, path, payload, "", &body); err != nil {
		return ports.AuthResult{}, err
	}
	if body.Token == "" {
		return ports.AuthResult{}, apperrors.RemoteRejected("service did not issue a credential")
	}

	result := ports.AuthResult{Token: body.Token}
	if len(body.User) > 0 {
		identity, err := c.mapper.MapJSON(body.User)
		if err != nil {
			// Optional payload; token-derived identity covers the gap.
			c.logger.Warn("user payload mapping failed", slog.String("error", err.Error()))
		} else {
			result.Identity = identity
		}
	}
	return result, nil
}

type googleExchangeRequest struct {
	Token string `json:"token"`
	Mode  string `json:"mode"`
}

type googleExchangeResponse struct {
	Valid     bool   `json:"valid"`
	Message   string `json:"message"`
	IsNewUser bool   `json:"isNewUser"`
	Token     string `json:"token"`
}

// ExchangeGoogle sends the provider-issued token to the backend, which
// decides login-vs-register semantics from the mode.
func (c *Client) ExchangeGoogle(ctx context.Context, in ports.GoogleExchangeInput) (ports.GoogleExchangeResult, error) {
	var body googleExchangeResponse
	err := c.postJSON(ctx, "/auth/google", googleExchangeRequest{Token: in.ProviderToken, Mode: in.Mode}, "", &body)
	if err != nil {
		return ports.GoogleExchangeResult{}, err
	}
	return ports.GoogleExchangeResult{
		Valid:     body.Valid,
		Message:   body.Message,
		IsNewUser: body.IsNewUser,
		Token:     body.Token,
	}, nil
}

// LogoutRemote tells the service the session is over. Callers treat errors as
// non-fatal; this method still reports them for logging.
func (c *Client) LogoutRemote(ctx context.Context, credential string) error {
	return c.postJSON(ctx, "/auth/logout", struct{}{}, credential, nil)
}

// FetchProfile retrieves the authoritative profile record for the
// credential's subject and maps it through the configured expressions.
func (c *Client) FetchProfile(ctx context.Context, credential string) (auth.Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/users/me", nil)
	if err != nil {
		return auth.Identity{}, apperrors.Internal("build profile request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+credential)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return auth.Identity{}, apperrors.Transport("identity service unreachable", err)
	}
	defer closeBody(resp.Body, c.logger)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return auth.Identity{}, c.remoteError(resp)
	}

	doc, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return auth.Identity{}, apperrors.Transport("read profile response", err)
	}
	return c.mapper.MapJSON(doc)
}

// postJSON performs a JSON POST, optionally bearer-authenticated, decoding
// the response into out when out is non-nil.
func (c *Client) postJSON(ctx context.Context, path string, payload any, credential string, out any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return apperrors.Internal("encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return apperrors.Internal("build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.Transport("identity service unreachable", err)
	}
	defer closeBody(resp.Body, c.logger)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.remoteError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.Transport("decode response", err)
	}
	return nil
}

// remoteError maps a non-2xx answer to a RemoteRejected error, passing the
// service's message through for the UI layer.
func (c *Client) remoteError(resp *http.Response) error {
	var body struct {
		Message string `json:"message"`
	}
	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if readErr == nil && len(raw) > 0 {
		_ = json.Unmarshal(raw, &body)
	}
	message := body.Message
	if message == "" {
		message = fmt.Sprintf("identity service returned status %d", resp.StatusCode)
	}
	return apperrors.RemoteRejected(message)
}

func closeBody(body io.ReadCloser, logger *slog.Logger) {
	if err := body.Close(); err != nil {
		logger.Debug("close response body failed", slog.String("error", err.Error()))
	}
}
