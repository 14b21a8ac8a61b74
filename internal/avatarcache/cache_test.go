package avatarcache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/sessionkit/internal/adapters/kv"
)

// testClock is an adjustable clock shared with the cache under test.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestCache(store *kv.MemoryStore, clock *testClock, capacity int) *Cache {
	return New(context.Background(), Options{
		Store:    store,
		Capacity: capacity,
		Now:      clock.Now,
	})
}

func TestCache_SetAndGet(t *testing.T) {
	t.Parallel()

	clock := newTestClock()
	cache := newTestCache(kv.NewMemoryStore(), clock, 0)

	key := Key("https://example.com/ada.png", TierSmall)
	cache.Set(context.Background(), key, Entry{URL: "https://example.com/ada.png", OptimizedURL: "data:image/jpeg;base64,abc"})

	entry, ok := cache.Get(context.Background(), key)
	require.True(t, ok)
	assert.Equal(t, "data:image/jpeg;base64,abc", entry.OptimizedURL)
	assert.Equal(t, clock.Now().UnixMilli(), entry.Timestamp)
}

func TestCache_TiersAreDistinctEntries(t *testing.T) {
	t.Parallel()

	clock := newTestClock()
	cache := newTestCache(kv.NewMemoryStore(), clock, 0)

	source := "https://example.com/ada.png"
	cache.Set(context.Background(), Key(source, TierSmall), Entry{URL: source, OptimizedURL: "small-artifact"})
	cache.Set(context.Background(), Key(source, TierLarge), Entry{URL: source, OptimizedURL: "large-artifact"})

	small, ok := cache.Get(context.Background(), Key(source, TierSmall))
	require.True(t, ok)
	large, ok2 := cache.Get(context.Background(), Key(source, TierLarge))
	require.True(t, ok2)
	assert.Equal(t, "small-artifact", small.OptimizedURL)
	assert.Equal(t, "large-artifact", large.OptimizedURL)
	assert.Equal(t, 2, cache.Len())
}

func TestCache_FIFOEvictionAtCapacity(t *testing.T) {
	t.Parallel()

	clock := newTestClock()
	cache := newTestCache(kv.NewMemoryStore(), clock, 0) // default capacity 10

	for i := 0; i < 10; i++ {
		cache.Set(context.Background(), fmt.Sprintf("source-%d|small", i), Entry{URL: fmt.Sprintf("source-%d", i)})
		clock.Advance(time.Second)
	}
	require.Equal(t, 10, cache.Len())

	// The 11th insertion evicts exactly the oldest entry.
	cache.Set(context.Background(), "source-10|small", Entry{URL: "source-10"})

	assert.Equal(t, 10, cache.Len())
	_, ok := cache.Get(context.Background(), "source-0|small")
	assert.False(t, ok)
	_, ok = cache.Get(context.Background(), "source-1|small")
	assert.True(t, ok)
	_, ok = cache.Get(context.Background(), "source-10|small")
	assert.True(t, ok)
}

func TestCache_RewriteCountsAsFreshInsertion(t *testing.T) {
	t.Parallel()

	clock := newTestClock()
	cache := newTestCache(kv.NewMemoryStore(), clock, 3)

	cache.Set(context.Background(), "a", Entry{URL: "a"})
	clock.Advance(time.Second)
	cache.Set(context.Background(), "b", Entry{URL: "b"})
	clock.Advance(time.Second)
	cache.Set(context.Background(), "c", Entry{URL: "c"})
	clock.Advance(time.Second)

	// Rewriting "a" moves it to the back of the eviction order.
	cache.Set(context.Background(), "a", Entry{URL: "a", OptimizedURL: "fresh"})
	clock.Advance(time.Second)
	cache.Set(context.Background(), "d", Entry{URL: "d"})

	_, ok := cache.Get(context.Background(), "b")
	assert.False(t, ok, "oldest untouched entry is the one evicted")
	entry, ok := cache.Get(context.Background(), "a")
	require.True(t, ok)
	assert.Equal(t, "fresh", entry.OptimizedURL)
}

func TestCache_TTLExpiryOnRead(t *testing.T) {
	t.Parallel()

	clock := newTestClock()
	store := kv.NewMemoryStore()
	cache := newTestCache(store, clock, 0)

	cache.Set(context.Background(), "k", Entry{URL: "k", OptimizedURL: "artifact"})

	// Age exactly at the TTL is still served.
	clock.Advance(DefaultTTL)
	_, ok := cache.Get(context.Background(), "k")
	assert.True(t, ok)

	// One step past the TTL evicts at read time and persists the removal.
	clock.Advance(time.Millisecond)
	_, ok = cache.Get(context.Background(), "k")
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Len())

	raw, found, err := store.Get(context.Background(), StorageKey)
	require.NoError(t, err)
	require.True(t, found)
	assert.JSONEq(t, "{}", raw)
}

func TestCache_PersistenceRoundTrip(t *testing.T) {
	t.Parallel()

	clock := newTestClock()
	store := kv.NewMemoryStore()

	first := newTestCache(store, clock, 0)
	first.Set(context.Background(), "old", Entry{URL: "old", OptimizedURL: "old-artifact"})
	clock.Advance(time.Minute)
	first.Set(context.Background(), "new", Entry{URL: "new", OptimizedURL: "new-artifact"})

	// A fresh cache over the same medium restores entries and their order.
	second := newTestCache(store, clock, 0)
	require.Equal(t, 2, second.Len())

	entry, ok := second.Get(context.Background(), "old")
	require.True(t, ok)
	assert.Equal(t, "old-artifact", entry.OptimizedURL)

	// Filling to capacity evicts the restored oldest entry first.
	for i := 0; i < 9; i++ {
		clock.Advance(time.Second)
		second.Set(context.Background(), fmt.Sprintf("fill-%d", i), Entry{URL: fmt.Sprintf("fill-%d", i)})
	}
	_, ok = second.Get(context.Background(), "old")
	assert.False(t, ok)
	_, ok = second.Get(context.Background(), "new")
	assert.True(t, ok)
}

func TestCache_CorruptPersistedValueDiscarded(t *testing.T) {
	t.Parallel()

	store := kv.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), StorageKey, "{not json"))

	cache := newTestCache(store, newTestClock(), 0)
	assert.Equal(t, 0, cache.Len())

	_, found, err := store.Get(context.Background(), StorageKey)
	require.NoError(t, err)
	assert.False(t, found, "corrupt slot is deleted, not kept")
}

func TestCache_LoadTrimsOverCapacity(t *testing.T) {
	t.Parallel()

	clock := newTestClock()
	store := kv.NewMemoryStore()

	big := New(context.Background(), Options{Store: store, Capacity: 5, Now: clock.Now})
	for i := 0; i < 5; i++ {
		big.Set(context.Background(), fmt.Sprintf("k%d", i), Entry{URL: fmt.Sprintf("k%d", i)})
		clock.Advance(time.Second)
	}

	small := New(context.Background(), Options{Store: store, Capacity: 3, Now: clock.Now})
	assert.Equal(t, 3, small.Len())

	// The newest entries survive the trim.
	_, ok := small.Get(context.Background(), "k4")
	assert.True(t, ok)
	_, ok = small.Get(context.Background(), "k0")
	assert.False(t, ok)
}

func TestCache_Clear(t *testing.T) {
	t.Parallel()

	clock := newTestClock()
	store := kv.NewMemoryStore()
	cache := newTestCache(store, clock, 0)

	cache.Set(context.Background(), "k", Entry{URL: "k"})
	cache.Clear(context.Background())

	assert.Equal(t, 0, cache.Len())
	_, found, err := store.Get(context.Background(), StorageKey)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://example.com/a.png|small", Key("https://example.com/a.png", TierSmall))
	assert.Equal(t, "https://example.com/a.png|large", Key("https://example.com/a.png", TierLarge))
}
