package avatarcache

// Package avatarcache is the bounded, time-limited store for derived avatar
// artifacts. It is keyed by (source reference, quality tier), capped by entry
// count with FIFO eviction, expired by TTL at read time, and persisted as a
// single JSON map in the shared key-value medium so it survives reloads.

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/target/sessionkit/internal/observability/statsd"
	"github.com/target/sessionkit/internal/ports"
)

// StorageKey is the key-value slot holding the serialized cache map.
const StorageKey = "navbar_avatar_cache"

const (
	// DefaultTTL bounds how long a derived artifact is trusted.
	DefaultTTL = 24 * time.Hour
	// DefaultCapacity bounds the entry count; insertion past capacity evicts
	// the oldest entry by insertion order.
	DefaultCapacity = 10
)

// QualityTier selects the derived artifact size.
type QualityTier string

const (
	TierSmall QualityTier = "small"
	TierLarge QualityTier = "large"
)

// Entry is one cached artifact. The JSON shape is the persisted wire format.
type Entry struct {
	URL          string `json:"url"`
	OptimizedURL string `json:"optimizedUrl"`
	Timestamp    int64  `json:"timestamp"` // unix milliseconds
}

// Key builds the cache key for a source reference and quality tier.
func Key(sourceRef string, tier QualityTier) string {
	return sourceRef + "|" + string(tier)
}

// Options groups construction parameters for Cache.
type Options struct {
	Store    ports.KeyValueStore
	TTL      time.Duration
	Capacity int
	Logger   *slog.Logger
	Metrics  statsd.Sink

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Cache is the capacity- and time-bounded artifact store.
type Cache struct {
	store    ports.KeyValueStore
	ttl      time.Duration
	capacity int
	logger   *slog.Logger
	metrics  statsd.Sink
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]Entry
	// order tracks insertion order for FIFO eviction, oldest first.
	order []string
}

// New constructs a Cache and loads any persisted entries. A corrupt
// persisted value is discarded, not fatal.
func New(ctx context.Context, opts Options) *Cache {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = statsd.Noop{}
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	capacity := opts.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	c := &Cache{
		store:    opts.Store,
		ttl:      ttl,
		capacity: capacity,
		logger:   logger,
		metrics:  metrics,
		now:      now,
		entries:  make(map[string]Entry),
	}
	c.load(ctx)
	return c
}

// Get returns the entry for key if present and not expired. A stale entry
// found at read time is evicted as a side effect.
func (c *Cache) Get(ctx context.Context, key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.metrics.Count("avatar_cache.miss", 1, nil)
		return Entry{}, false
	}

	age := c.now().UnixMilli() - entry.Timestamp
	if age > c.ttl.Milliseconds() {
		c.removeLocked(key)
		c.persistLocked(ctx)
		c.metrics.Count("avatar_cache.expired", 1, nil)
		return Entry{}, false
	}

	c.metrics.Count("avatar_cache.hit", 1, nil)
	return entry, true
}

// Set inserts or replaces the entry for key, refreshing its timestamp. When
// the store is at capacity the single oldest entry is evicted first.
func (c *Cache) Set(ctx context.Context, key string, entry Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		// A rewrite counts as a fresh insertion for eviction ordering.
		c.removeLocked(key)
	}

	for len(c.entries) >= c.capacity && len(c.order) > 0 {
		oldest := c.order[0]
		c.removeLocked(oldest)
		c.metrics.Count("avatar_cache.evicted", 1, nil)
	}

	entry.Timestamp = c.now().UnixMilli()
	c.entries[key] = entry
	c.order = append(c.order, key)
	c.persistLocked(ctx)
}

// Clear releases all entries and the persisted backing value.
func (c *Cache) Clear(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]Entry)
	c.order = nil
	if err := c.store.Delete(ctx, StorageKey); err != nil {
		c.logger.Warn("clear persisted avatar cache failed", slog.String("error", err.Error()))
	}
}

// Len returns the current entry count.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) removeLocked(key string) {
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// persistLocked writes the whole map as one value. Partial patches would
// corrupt the slot under last-writer-wins semantics across tabs.
func (c *Cache) persistLocked(ctx context.Context) {
	raw, err := json.Marshal(c.entries)
	if err != nil {
		c.logger.Warn("encode avatar cache failed", slog.String("error", err.Error()))
		return
	}
	if err := c.store.Set(ctx, StorageKey, string(raw)); err != nil {
		c.logger.Warn("persist avatar cache failed", slog.String("error", err.Error()))
	}
}

// load restores persisted entries, rebuilding insertion order from
// timestamps (oldest first).
func (c *Cache) load(ctx context.Context) {
	raw, ok, err := c.store.Get(ctx, StorageKey)
	if err != nil {
		c.logger.Warn("read persisted avatar cache failed", slog.String("error", err.Error()))
		return
	}
	if !ok || raw == "" {
		return
	}

	entries := make(map[string]Entry)
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		c.logger.Warn("discarding corrupt avatar cache", slog.String("error", err.Error()))
		if delErr := c.store.Delete(ctx, StorageKey); delErr != nil {
			c.logger.Warn("delete corrupt avatar cache failed", slog.String("error", delErr.Error()))
		}
		return
	}

	order := make([]string, 0, len(entries))
	for k := range entries {
		order = append(order, k)
	}
	sort.Slice(order, func(i, j int) bool {
		return entries[order[i]].Timestamp < entries[order[j]].Timestamp
	})

	// Persisted data may predate a capacity change; keep the newest.
	for len(entries) > c.capacity && len(order) > 0 {
		delete(entries, order[0])
		order = order[1:]
	}

	c.entries = entries
	c.order = order
}
