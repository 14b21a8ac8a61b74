package config

import (
	"fmt"
	"strings"
)

// StorageBackend selects the persistent key-value medium.
type StorageBackend string

const (
	// StorageMemory keeps everything in process memory. Sessions do not
	// survive restarts; intended for tests and throwaway runs.
	StorageMemory StorageBackend = "memory"
	// StorageFile persists to a single JSON file with atomic replacement.
	StorageFile StorageBackend = "file"
	// StorageRedis persists to Redis.
	StorageRedis StorageBackend = "redis"
	// StoragePostgres persists to a Postgres table.
	StoragePostgres StorageBackend = "postgres"
)

// UnmarshalText implements encoding.TextUnmarshaler for StorageBackend.
func (b *StorageBackend) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "memory", "file", "redis", "postgres":
		*b = StorageBackend(v)
		return nil
	default:
		return fmt.Errorf("invalid StorageBackend: %q (valid options: memory, file, redis, postgres)", v)
	}
}

// RedisConfig connects the Redis storage backend.
type RedisConfig struct {
	Addr     string `env:"ADDR"     envDefault:"localhost:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB"       envDefault:"0"`
}

// PostgresConfig connects the Postgres storage backend.
type PostgresConfig struct {
	// URL is a pgx connection string.
	URL string `env:"URL"`
}

// StorageConfig groups key-value storage configuration.
type StorageConfig struct {
	// Backend determines which store implementation to use.
	Backend StorageBackend `env:"BACKEND" envDefault:"file"`

	// FilePath is the store location for the file backend.
	FilePath string `env:"FILE_PATH" envDefault:".sessionkit/store.json"`

	Redis    RedisConfig    `envPrefix:"REDIS_"`
	Postgres PostgresConfig `envPrefix:"POSTGRES_"`
}
