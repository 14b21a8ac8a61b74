package config

import (
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config files for
// details on available environment variables:
//   - auth.go: identity service, Google handshake and window configuration
//   - storage.go: key-value store backend configuration
//   - cache.go: avatar cache configuration
//   - observability.go: metrics configuration
type AppConfig struct {
	// IsDev controls development mode behavior.
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// Identity service configuration
	Identity IdentityConfig `envPrefix:"IDENTITY_"`

	// Google handshake configuration
	Google GoogleConfig `envPrefix:"GOOGLE_"`

	// Handshake window configuration
	Handshake HandshakeConfig `envPrefix:"HANDSHAKE_"`

	// Key-value storage configuration
	Storage StorageConfig `envPrefix:"STORAGE_"`

	// Avatar cache configuration
	AvatarCache CacheConfig `envPrefix:"AVATAR_CACHE_"`

	// Observability configuration
	Observability ObservabilityConfig `envPrefix:"METRICS_"`
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.Handshake.Sanitize()
	c.AvatarCache.Sanitize()
	c.detectDevMode()
}

// detectDevMode checks NODE_ENV as a fallback for the DEV flag.
func (c *AppConfig) detectDevMode() {
	if c.IsDev {
		return
	}
	if strings.EqualFold(os.Getenv("NODE_ENV"), "development") {
		c.IsDev = true
	}
}
