package config

// ObservabilityConfig configures metrics emission.
type ObservabilityConfig struct {
	// Enabled turns on StatsD emission. Off by default.
	Enabled bool `env:"ENABLED" envDefault:"false"`

	// Address is the UDP address of a StatsD-compatible sink.
	Address string `env:"ADDRESS" envDefault:"localhost:8125"`

	// Prefix is prepended to every metric name.
	Prefix string `env:"PREFIX" envDefault:"sessionkit"`
}
