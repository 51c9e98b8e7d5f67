// Package cache provides a small in-process TTL cache for derived read
// views (recent orders, dashboard aggregates). Entries expire on their own
// TTL and are additionally dropped explicitly when the order engine commits
// a write that would make them stale.
package cache

import (
	"context"
	"sync"
	"time"
)

// View keys for order-derived read models.
const (
	KeyRecentOrders   = "orders:recent"
	KeyDashboardStats = "stats:dashboard"
)

type entry struct {
	value     any
	expiresAt time.Time
}

// Cache is a concurrency-safe key -> (value, expiry) store.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get returns the live value for key. Expired entries are treated as absent
// and removed lazily by the sweeper.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || c.now().After(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

// Set stores value under key for the given TTL.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, expiresAt: c.now().Add(ttl)}
}

// Invalidate removes the given keys immediately.
func (c *Cache) Invalidate(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.entries, key)
	}
}

// InvalidateOrderViews drops every order-derived view. It satisfies the
// order service's ViewInvalidator dependency.
func (c *Cache) InvalidateOrderViews() {
	c.Invalidate(KeyRecentOrders, KeyDashboardStats)
}

// StartSweeper launches a goroutine that removes expired entries at the
// given interval until ctx is cancelled. Without it expired entries are
// only dropped when overwritten or invalidated.
func (c *Cache) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				c.sweep(now)
			}
		}
	}()
}

func (c *Cache) sweep(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}
