package access

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
)

// redisKeyPrefix namespaces decision entries so Clear cannot touch foreign
// keys on a shared instance.
const redisKeyPrefix = "gatehouse:decision:"

// RedisCache shares decisions across process instances, trading the local
// cache's bounded staleness for immediate cross-instance visibility of
// evictions. Entries expire server-side via SETEX; redis failures degrade to
// cache misses, never to evaluation errors.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a redis-backed decision cache.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) (*Decision, bool) {
	data, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		return nil, false
	}
	var decision Decision
	if err := json.Unmarshal(data, &decision); err != nil {
		return nil, false
	}
	return &decision, true
}

func (c *RedisCache) Set(ctx context.Context, key string, decision *Decision) {
	data, err := json.Marshal(decision)
	if err != nil {
		return
	}
	c.client.Set(ctx, redisKeyPrefix+key, data, c.ttl)
}

// Clear deletes every namespaced decision key.
func (c *RedisCache) Clear(ctx context.Context) {
	iter := c.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if len(keys) > 0 {
		c.client.Del(ctx, keys...)
	}
}

// Sweep is a no-op: redis expires keys server-side.
func (c *RedisCache) Sweep(ctx context.Context) int {
	return 0
}

func (c *RedisCache) Len(ctx context.Context) int {
	count := 0
	iter := c.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		count++
	}
	return count
}
