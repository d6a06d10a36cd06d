package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMemory_SetGet verifies stored values come back as copies
func TestMemory_SetGet(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(0)

	value := []byte("<html></html>")
	require.NoError(t, c.Set(ctx, "https://example.com/a", value))
	value[0] = 'X'

	got, err := c.Get(ctx, "https://example.com/a")
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(got))

	got[0] = 'Y'
	again, err := c.Get(ctx, "https://example.com/a")
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(again))
}

// TestMemory_Miss verifies unknown keys report ErrMiss
func TestMemory_Miss(t *testing.T) {
	_, err := NewMemory(time.Minute).Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrMiss)
}

// TestMemory_Expiry verifies entries expire after the TTL
func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", []byte("v")))

	now = now.Add(59 * time.Second)
	_, err := c.Get(ctx, "k")
	require.NoError(t, err)

	now = now.Add(time.Second)
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
	assert.Equal(t, 0, c.Len(), "expired entry should be evicted")
}

// TestMemory_Concurrent verifies the cache is safe for concurrent use
func TestMemory_Concurrent(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Set(ctx, "shared", []byte("v"))
			_, _ = c.Get(ctx, "shared")
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, c.Len())
}

// TestRedis_KeyPrefix verifies page keys are namespaced
func TestRedis_KeyPrefix(t *testing.T) {
	assert.Equal(t, "recipefed:page:https://example.com/a", redisKey("https://example.com/a"))
}

// TestRedis_Unreachable verifies connection failures are reported
func TestRedis_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewRedis(ctx, "127.0.0.1:1", time.Minute)
	assert.Error(t, err)
}

// TestRedis_ImplementsCache verifies both implementations satisfy Cache
func TestRedis_ImplementsCache(t *testing.T) {
	var _ Cache = NewMemory(0)
	var _ Cache = NewRedisWithClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}), 0)
}
