// Package testutil provides helpers for integration tests against real
// backing services. Tests using these helpers skip when the service is not
// reachable, so the default test run stays hermetic.
package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// SetupTestRedis creates a Redis client for testing. The address comes from
// TEST_REDIS_ADDR, defaulting to localhost:6379. Tests are skipped if Redis
// is not reachable. The selected test DB is flushed before use.
func SetupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		if cerr := client.Close(); cerr != nil {
			t.Logf("warning: failed to close redis client: %v", cerr)
		}
		t.Skipf("Redis not available for testing at %s: %v", addr, err)
	}

	client.FlushDB(ctx)
	t.Cleanup(func() {
		if err := client.Close(); err != nil {
			t.Logf("warning: failed to close redis client: %v", err)
		}
	})
	return client
}

// SetupTestPostgres creates a pgx pool for testing. The connection string
// comes from TEST_POSTGRES_URL; tests are skipped when it is unset or the
// database is not reachable.
func SetupTestPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()

	url := os.Getenv("TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("TEST_POSTGRES_URL not set, skipping Postgres integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Skipf("Postgres not available for testing: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("Postgres not available for testing: %v", err)
	}

	t.Cleanup(pool.Close)
	return pool
}
