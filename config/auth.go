package config

import "time"

// IdentityConfig points at the remote identity service.
type IdentityConfig struct {
	// BaseURL is the root of the identity service API.
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	// Timeout bounds each request to the service.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"15s"`
}

// GoogleConfig configures the Google sign-in handshake.
type GoogleConfig struct {
	ClientID    string `env:"CLIENT_ID"`
	RedirectURL string `env:"REDIRECT_URL" envDefault:"http://127.0.0.1:53682/callback"`
	Scope       string `env:"SCOPE"        envDefault:"openid profile email"`

	// VerifyIDToken enables strict verification of provider tokens against
	// Google's published keys. Requires network access at startup.
	VerifyIDToken bool `env:"VERIFY_ID_TOKEN" envDefault:"false"`

	// IssuerURL overrides the provider issuer, for tests.
	IssuerURL string `env:"ISSUER_URL"`
}

// HandshakeConfig configures the handshake coordinator and window adapter.
// Origin and ListenAddr must agree with GoogleConfig.RedirectURL.
type HandshakeConfig struct {
	// Origin is the application's own origin; handshake messages from any
	// other origin are discarded.
	Origin string `env:"ORIGIN" envDefault:"http://127.0.0.1:53682"`

	// ListenAddr is the loopback address the window adapter listens on.
	ListenAddr string `env:"LISTEN_ADDR" envDefault:"127.0.0.1:53682"`

	// PollInterval is how often the coordinator checks for manual closure.
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"500ms"`

	// Timeout bounds an abandoned attempt.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"5m"`
}

// Sanitize applies guardrails to handshake values.
func (c *HandshakeConfig) Sanitize() {
	if c.PollInterval < 100*time.Millisecond {
		c.PollInterval = 100 * time.Millisecond
	}
	if c.Timeout < time.Minute {
		c.Timeout = time.Minute
	}
}
