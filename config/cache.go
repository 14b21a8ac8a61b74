package config

import "time"

// CacheConfig configures the avatar artifact cache.
type CacheConfig struct {
	// TTL is how long a derived artifact is trusted.
	TTL time.Duration `env:"TTL" envDefault:"24h"`

	// Capacity bounds the entry count; the oldest entry is evicted first.
	Capacity int `env:"CAPACITY" envDefault:"10"`

	// SizeThreshold is the source size in bytes above which local
	// downscaling kicks in.
	SizeThreshold int64 `env:"SIZE_THRESHOLD" envDefault:"131072"`

	// JPEGQuality is the recompression quality for downscaled artifacts.
	JPEGQuality int `env:"JPEG_QUALITY" envDefault:"80"`
}

// Sanitize applies guardrails to cache values.
func (c *CacheConfig) Sanitize() {
	if c.TTL <= 0 {
		c.TTL = 24 * time.Hour
	}
	if c.Capacity <= 0 {
		c.Capacity = 10
	}
	if c.SizeThreshold <= 0 {
		c.SizeThreshold = 131072
	}
	if c.JPEGQuality <= 0 || c.JPEGQuality > 100 {
		c.JPEGQuality = 80
	}
}
