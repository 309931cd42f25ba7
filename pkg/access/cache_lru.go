package access

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// LRUCache bounds the decision cache by entry count with LRU eviction on top
// of TTL expiry. Preferable to MemoryCache when a burst of distinct cache
// keys (many orgs x many modules) must not grow the map within one TTL
// window.
type LRUCache struct {
	lru *expirable.LRU[string, Decision]
}

// NewLRUCache creates an LRU-bounded decision cache.
func NewLRUCache(size int, ttl time.Duration) *LRUCache {
	if size <= 0 {
		size = DefaultSweepCap
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &LRUCache{lru: expirable.NewLRU[string, Decision](size, nil, ttl)}
}

func (c *LRUCache) Get(ctx context.Context, key string) (*Decision, bool) {
	decision, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	return &decision, true
}

func (c *LRUCache) Set(ctx context.Context, key string, decision *Decision) {
	c.lru.Add(key, *decision)
}

func (c *LRUCache) Clear(ctx context.Context) {
	c.lru.Purge()
}

// Sweep is a no-op: the LRU expires and evicts on its own.
func (c *LRUCache) Sweep(ctx context.Context) int {
	return 0
}

func (c *LRUCache) Len(ctx context.Context) int {
	return c.lru.Len()
}
