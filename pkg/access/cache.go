package access

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultTTL bounds cross-instance staleness: an entitlement change is
	// visible platform-wide once every instance's window lapses.
	DefaultTTL = 30 * time.Second

	// DefaultSweepCap is the entry count past which Set sweeps expired
	// entries before inserting.
	DefaultSweepCap = 1500
)

// DecisionCache memoizes access decisions. Implementations must be safe for
// concurrent use; the cache is the only shared mutable state on the read
// path. Lookup misses and storage hiccups both surface as a plain miss;
// the cache is advisory and may never fail an evaluation.
type DecisionCache interface {
	Get(ctx context.Context, key string) (*Decision, bool)
	Set(ctx context.Context, key string, decision *Decision)
	Clear(ctx context.Context)

	// Sweep removes expired entries and reports how many were dropped.
	// Implementations that expire on their own return 0.
	Sweep(ctx context.Context) int
	Len(ctx context.Context) int
}

type cacheEntry struct {
	decision  Decision
	expiresAt time.Time
}

// MemoryCache is the default per-process decision cache: a mutex-guarded map
// with TTL expiry. There is no background eviction; Set sweeps expired
// entries once the map exceeds its cap, so memory stays bounded by writes.
type MemoryCache struct {
	mu       sync.RWMutex
	entries  map[string]cacheEntry
	ttl      time.Duration
	sweepCap int
	now      func() time.Time
}

// NewMemoryCache creates a memory cache. Non-positive arguments fall back to
// the defaults.
func NewMemoryCache(ttl time.Duration, sweepCap int) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if sweepCap <= 0 {
		sweepCap = DefaultSweepCap
	}
	return &MemoryCache{
		entries:  make(map[string]cacheEntry),
		ttl:      ttl,
		sweepCap: sweepCap,
		now:      time.Now,
	}
}

// Get returns a copy of the live decision for key, or a miss when absent or
// expired. Callers own the returned value.
func (c *MemoryCache) Get(ctx context.Context, key string) (*Decision, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.now().After(entry.expiresAt) {
		return nil, false
	}
	decision := entry.decision
	return &decision, true
}

// Set stores the decision under key with the cache's TTL, sweeping expired
// entries first when the cache is at or past its cap.
func (c *MemoryCache) Set(ctx context.Context, key string, decision *Decision) {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= c.sweepCap {
		c.sweepLocked(now)
	}
	c.entries[key] = cacheEntry{decision: *decision, expiresAt: now.Add(c.ttl)}
}

// Clear drops every entry.
func (c *MemoryCache) Clear(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// Sweep removes expired entries.
func (c *MemoryCache) Sweep(ctx context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweepLocked(c.now())
}

// Len reports the entry count, expired entries included until swept.
func (c *MemoryCache) Len(ctx context.Context) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *MemoryCache) sweepLocked(now time.Time) int {
	removed := 0
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}
