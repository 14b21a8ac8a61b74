package redis

// Package redis provides the Redis-backed key-value store adapter.

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/target/sessionkit/internal/ports"
)

// KVStore is a Redis-backed ports.KeyValueStore. Values are written whole;
// there is no partial update path.
type KVStore struct {
	client redis.UniversalClient
	prefix string
}

var _ ports.KeyValueStore = (*KVStore)(nil)

// NewKVStore creates a Redis key-value store with the default key prefix.
func NewKVStore(client redis.UniversalClient) *KVStore {
	return &KVStore{client: client, prefix: "sessionkit:"}
}

// NewKVStoreWithPrefix creates a Redis key-value store with a custom prefix.
func NewKVStoreWithPrefix(client redis.UniversalClient, prefix string) *KVStore {
	return &KVStore{client: client, prefix: prefix}
}

func (s *KVStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return value, true, nil
}

func (s *KVStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *KVStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
