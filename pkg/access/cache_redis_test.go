package access

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisCache(t *testing.T, ttl time.Duration) (*RedisCache, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCache(client, ttl), mr, client
}

func TestRedisCacheGetSet(t *testing.T) {
	ctx := context.Background()
	cache, _, _ := newRedisCache(t, time.Minute)

	_, ok := cache.Get(ctx, "absent")
	assert.False(t, ok)

	cache.Set(ctx, "k", testDecision("inventory", true))
	got, ok := cache.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "inventory", got.ModuleKey)
	assert.Equal(t, ReasonEnabled, got.Reason)
	assert.Equal(t, 1, cache.Len(ctx))
}

func TestRedisCacheExpiry(t *testing.T) {
	ctx := context.Background()
	cache, mr, _ := newRedisCache(t, 30*time.Second)

	cache.Set(ctx, "k", testDecision("inventory", true))
	mr.FastForward(31 * time.Second)

	_, ok := cache.Get(ctx, "k")
	assert.False(t, ok)
}

func TestRedisCacheClearOnlyTouchesOwnNamespace(t *testing.T) {
	ctx := context.Background()
	cache, _, client := newRedisCache(t, time.Minute)

	cache.Set(ctx, "a", testDecision("a", true))
	cache.Set(ctx, "b", testDecision("b", false))
	require.NoError(t, client.Set(ctx, "foreign:key", "untouched", 0).Err())

	cache.Clear(ctx)

	assert.Equal(t, 0, cache.Len(ctx))
	val, err := client.Get(ctx, "foreign:key").Result()
	require.NoError(t, err)
	assert.Equal(t, "untouched", val)
}

func TestRedisCacheDegradesToMissOnFailure(t *testing.T) {
	ctx := context.Background()
	cache, mr, _ := newRedisCache(t, time.Minute)

	cache.Set(ctx, "k", testDecision("inventory", true))
	mr.Close()

	// A dead backend is a miss, never an error surfaced to the evaluator.
	_, ok := cache.Get(ctx, "k")
	assert.False(t, ok)
	cache.Set(ctx, "k2", testDecision("other", true))
}
