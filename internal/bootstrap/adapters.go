package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/target/sessionkit/config"
	"github.com/target/sessionkit/internal/adapters/kv"
	"github.com/target/sessionkit/internal/adapters/postgres"
	redisadapter "github.com/target/sessionkit/internal/adapters/redis"
	"github.com/target/sessionkit/internal/observability/statsd"
	"github.com/target/sessionkit/internal/ports"
)

// NewKeyValueStore builds the configured persistent key-value medium.
// The returned closer releases backend connections; it may be nil.
func NewKeyValueStore(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (ports.KeyValueStore, func(), error) {
	switch cfg.Storage.Backend {
	case config.StorageMemory:
		return kv.NewMemoryStore(), nil, nil

	case config.StorageFile:
		store, err := kv.NewFileStore(cfg.Storage.FilePath)
		if err != nil {
			return nil, nil, fmt.Errorf("file store: %w", err)
		}
		return store, nil, nil

	case config.StorageRedis:
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Storage.Redis.Addr,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		closer := func() {
			if err := client.Close(); err != nil {
				logger.Warn("close redis failed", slog.String("error", err.Error()))
			}
		}
		return redisadapter.NewKVStore(client), closer, nil

	case config.StoragePostgres:
		pool, err := pgxpool.New(ctx, cfg.Storage.Postgres.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres pool: %w", err)
		}
		store := postgres.NewKVStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// NewMetrics builds the metrics sink from configuration.
func NewMetrics(cfg *config.AppConfig, logger *slog.Logger) (statsd.Sink, func(), error) {
	if !cfg.Observability.Enabled {
		return statsd.Noop{}, nil, nil
	}
	client, err := statsd.NewClient(statsd.Config{
		Enabled: true,
		Address: cfg.Observability.Address,
		Prefix:  cfg.Observability.Prefix,
		Logger:  logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("statsd client: %w", err)
	}
	closer := func() {
		if cerr := client.Close(); cerr != nil {
			logger.Warn("close statsd failed", slog.String("error", cerr.Error()))
		}
	}
	return client, closer, nil
}
