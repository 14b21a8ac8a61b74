package postgres

// Package postgres provides the Postgres-backed key-value store adapter,
// for deployments that already run a database and want the credential slot
// and cache to live next to it. Writes are whole-row upserts.

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	apperrors "github.com/target/sessionkit/internal/errors"
	"github.com/target/sessionkit/internal/ports"
)

// KVStore is a Postgres-backed ports.KeyValueStore.
type KVStore struct {
	pool  *pgxpool.Pool
	table string
}

var _ ports.KeyValueStore = (*KVStore)(nil)

// NewKVStore creates the adapter over an existing pool.
func NewKVStore(pool *pgxpool.Pool) *KVStore {
	return &KVStore{pool: pool, table: "session_kv"}
}

// EnsureSchema creates the backing table when it does not exist yet.
func (s *KVStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key        text PRIMARY KEY,
			value      text NOT NULL,
			updated_at timestamptz NOT NULL DEFAULT now()
		)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return mapDBError("create key-value table", err)
	}
	return nil
}

func (s *KVStore) Get(ctx context.Context, key string) (string, bool, error) {
	query := fmt.Sprintf(`SELECT value FROM %s WHERE key = $1`, s.table)

	var value string
	err := s.pool.QueryRow(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, mapDBError("get value", err)
	}
	return value, true, nil
}

func (s *KVStore) Set(ctx context.Context, key, value string) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = now()`, s.table)

	if _, err := s.pool.Exec(ctx, query, key, value); err != nil {
		return mapDBError("set value", err)
	}
	return nil
}

func (s *KVStore) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, s.table)
	if _, err := s.pool.Exec(ctx, query, key); err != nil {
		return mapDBError("delete value", err)
	}
	return nil
}

// mapDBError translates pgx errors into the application taxonomy.
func mapDBError(what string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return apperrors.Internal(what+": conflicting write", err)
		case pgerrcode.InsufficientPrivilege:
			return apperrors.Internal(what+": insufficient database privileges", err)
		}
	}
	return apperrors.Internal(what, err)
}
