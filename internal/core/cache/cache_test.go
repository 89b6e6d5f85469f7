package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"image-enhancer/internal/infrastructure/config"
)

// fakeClock 可手動前進的時鐘
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(t *testing.T, maxSize int, ttl time.Duration) (*MemoryStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := NewMemoryStore(MemoryOptions{MaxSize: maxSize, TTL: ttl})
	m.now = clock.now
	t.Cleanup(func() { _ = m.Close() })
	return m, clock
}

func TestKey(t *testing.T) {
	data := []byte("jpeg-bytes")
	assert.Equal(t, Key("enhance-v1", data), Key("enhance-v1", data))
	assert.NotEqual(t, Key("enhance-v1", data), Key("sepia@0.5", data))
	assert.NotEqual(t, Key("enhance-v1", data), Key("enhance-v1", []byte("other")))
	assert.Contains(t, Key("enhance-v1", data), "enhance:enhance-v1:")
}

func TestMemoryStoreGetSet(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestStore(t, 4, time.Minute)

	_, ok := m.Get(ctx, "missing")
	assert.False(t, ok)

	value := []byte{1, 2, 3}
	require.NoError(t, m.Set(ctx, "a", value))
	value[0] = 9

	got, ok := m.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, got, "stored value is a copy")

	stats := m.Stats()
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, 4, stats.MaxSize)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 0.5, stats.HitRatio(), 1e-9)
}

func TestMemoryStoreTTL(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestStore(t, 4, time.Minute)

	require.NoError(t, m.Set(ctx, "a", []byte("x")))
	clock.advance(30 * time.Second)
	_, ok := m.Get(ctx, "a")
	assert.True(t, ok)

	clock.advance(31 * time.Second)
	_, ok = m.Get(ctx, "a")
	assert.False(t, ok)
	assert.Equal(t, 0, m.Stats().Size)
	assert.Equal(t, int64(1), m.Stats().Evictions)
}

func TestMemoryStoreCapacity(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestStore(t, 2, time.Minute)

	require.NoError(t, m.Set(ctx, "a", []byte("a")))
	clock.advance(time.Second)
	require.NoError(t, m.Set(ctx, "b", []byte("b")))

	// a 被讀取過，b 成為最少使用的項目
	_, ok := m.Get(ctx, "a")
	require.True(t, ok)

	require.NoError(t, m.Set(ctx, "c", []byte("c")))
	assert.Equal(t, 2, m.Stats().Size)

	_, ok = m.Get(ctx, "b")
	assert.False(t, ok)
	_, ok = m.Get(ctx, "a")
	assert.True(t, ok)
	_, ok = m.Get(ctx, "c")
	assert.True(t, ok)
}

func TestMemoryStoreCapacityPrefersExpired(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestStore(t, 2, time.Minute)

	require.NoError(t, m.Set(ctx, "old", []byte("1")))
	clock.advance(50 * time.Second)
	require.NoError(t, m.Set(ctx, "fresh", []byte("2")))
	clock.advance(20 * time.Second)

	require.NoError(t, m.Set(ctx, "new", []byte("3")))
	_, ok := m.Get(ctx, "fresh")
	assert.True(t, ok)
	_, ok = m.Get(ctx, "new")
	assert.True(t, ok)
}

func TestMemoryStoreOverwrite(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestStore(t, 1, time.Minute)

	require.NoError(t, m.Set(ctx, "a", []byte("1")))
	require.NoError(t, m.Set(ctx, "a", []byte("2")))
	got, ok := m.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, []byte("2"), got)
	assert.Zero(t, m.Stats().Evictions)
}

func TestMemoryStoreClose(t *testing.T) {
	m := NewMemoryStore(MemoryOptions{MaxSize: 2, TTL: time.Minute, CleanupInterval: time.Millisecond})
	require.NoError(t, m.Set(context.Background(), "a", []byte("1")))
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	assert.Equal(t, 0, m.Stats().Size)
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	store, err := New(ctx, config.CacheConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, store)

	store, err = New(ctx, config.CacheConfig{
		Enabled: true,
		Driver:  config.CacheDriverMemory,
		MaxSize: 8,
		TTL:     time.Minute,
	})
	require.NoError(t, err)
	require.IsType(t, &MemoryStore{}, store)
	require.NoError(t, store.Close())

	_, err = New(ctx, config.CacheConfig{Enabled: true, Driver: "memcached"})
	assert.Error(t, err)
}

func TestRedisStoreUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	store, err := NewRedisStore(ctx, RedisOptions{
		Addr:        "127.0.0.1:1",
		TTL:         time.Minute,
		DialTimeout: 200 * time.Millisecond,
	})
	assert.Error(t, err)
	assert.Nil(t, store)

	s, err := New(ctx, config.CacheConfig{
		Enabled:   true,
		Driver:    config.CacheDriverRedis,
		RedisAddr: "127.0.0.1:1",
		TTL:       time.Minute,
	})
	assert.Error(t, err)
	assert.Nil(t, s)
}
