package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fran0220/stock-scanner/internal/config"
)

type entry struct {
	Codes []string `json:"codes"`
}

func providers(t *testing.T) map[string]Provider {
	t.Helper()
	sqlite, err := NewSQLiteProvider(context.Background(), filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	mr := miniredis.RunT(t)
	rp := NewRedisProviderFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = rp.Close() })

	return map[string]Provider{
		"memory": NewMemoryProvider(),
		"sqlite": sqlite,
		"redis":  rp,
	}
}

func TestProviderRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, p := range providers(t) {
		t.Run(name, func(t *testing.T) {
			var got entry
			assert.ErrorIs(t, p.Get(ctx, "stocks:A", &got), ErrMiss)

			require.NoError(t, p.Set(ctx, "stocks:A", entry{Codes: []string{"600000", "000001"}}, time.Minute))
			require.NoError(t, p.Get(ctx, "stocks:A", &got))
			assert.Equal(t, []string{"600000", "000001"}, got.Codes)

			require.NoError(t, p.Set(ctx, "stocks:A", entry{Codes: []string{"600519"}}, time.Minute))
			require.NoError(t, p.Get(ctx, "stocks:A", &got))
			assert.Equal(t, []string{"600519"}, got.Codes)

			require.NoError(t, p.Delete(ctx, "stocks:A"))
			assert.ErrorIs(t, p.Get(ctx, "stocks:A", &got), ErrMiss)
		})
	}
}

func TestMemoryProviderExpires(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryProvider()

	require.NoError(t, p.Set(ctx, "k", "v", 20*time.Millisecond))
	var got string
	require.NoError(t, p.Get(ctx, "k", &got))

	time.Sleep(40 * time.Millisecond)
	assert.ErrorIs(t, p.Get(ctx, "k", &got), ErrMiss)
}

func TestSQLiteProviderExpires(t *testing.T) {
	ctx := context.Background()
	p, err := NewSQLiteProvider(ctx, filepath.Join(t.TempDir(), "nested", "cache.db"))
	require.NoError(t, err)
	defer p.Close()

	now := time.Date(2025, 1, 2, 9, 30, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	require.NoError(t, p.Set(ctx, "short", "v", time.Minute))
	require.NoError(t, p.Set(ctx, "forever", "v", 0))

	now = now.Add(2 * time.Minute)

	var got string
	assert.ErrorIs(t, p.Get(ctx, "short", &got), ErrMiss)
	require.NoError(t, p.Get(ctx, "forever", &got))
	assert.Equal(t, "v", got)

	require.NoError(t, p.Set(ctx, "short2", "v", time.Minute))
	now = now.Add(2 * time.Minute)
	n, err := p.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRedisProviderExpires(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	p := NewRedisProviderFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer p.Close()

	require.NoError(t, p.Set(ctx, "short", "v", time.Minute))
	require.NoError(t, p.Set(ctx, "forever", "v", -time.Second))
	assert.Equal(t, time.Minute, mr.TTL("short"))
	assert.Zero(t, mr.TTL("forever"))

	mr.FastForward(2 * time.Minute)

	var got string
	assert.ErrorIs(t, p.Get(ctx, "short", &got), ErrMiss)
	require.NoError(t, p.Get(ctx, "forever", &got))
	assert.Equal(t, "v", got)
}

func TestNewRedisDriver(t *testing.T) {
	mr := miniredis.RunT(t)

	p, err := New(context.Background(), config.CacheConfig{Driver: "redis", RedisAddr: mr.Addr()})
	require.NoError(t, err)
	defer p.(*RedisProvider).Close()
	assert.IsType(t, &RedisProvider{}, p)

	gone, err := miniredis.Run()
	require.NoError(t, err)
	gone.Close()
	_, err = New(context.Background(), config.CacheConfig{Driver: "redis", RedisAddr: gone.Addr()})
	assert.Error(t, err)
}

func TestNewUnknownDriver(t *testing.T) {
	_, err := New(context.Background(), config.CacheConfig{Driver: "memcached"})
	assert.Error(t, err)

	p, err := New(context.Background(), config.CacheConfig{Driver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryProvider{}, p)
}
