package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_SetGet(t *testing.T) {
	c := New()

	c.Set("k", "v", time.Minute)

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", got)
}

func TestCache_GetMissing(t *testing.T) {
	c := New()

	_, ok := c.Get("nothing")
	assert.False(t, ok)
}

func TestCache_ExpiredEntryIsAbsent(t *testing.T) {
	base := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	current := base

	c := New()
	c.now = func() time.Time { return current }

	c.Set("k", "v", time.Minute)

	current = base.Add(30 * time.Second)
	_, ok := c.Get("k")
	assert.True(t, ok, "entry still live before TTL")

	current = base.Add(2 * time.Minute)
	_, ok = c.Get("k")
	assert.False(t, ok, "entry expired after TTL")
}

func TestCache_SetOverwritesTTL(t *testing.T) {
	base := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	current := base

	c := New()
	c.now = func() time.Time { return current }

	c.Set("k", "stale", time.Minute)
	current = base.Add(50 * time.Second)
	c.Set("k", "fresh", time.Minute)

	current = base.Add(90 * time.Second)
	got, ok := c.Get("k")
	require.True(t, ok, "overwrite resets the expiry")
	assert.Equal(t, "fresh", got)
}

func TestCache_Invalidate(t *testing.T) {
	c := New()

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)
	c.Set("c", 3, time.Minute)

	c.Invalidate("a", "b")

	_, ok := c.Get("a")
	assert.False(t, ok)
	_, ok = c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestCache_InvalidateOrderViews(t *testing.T) {
	c := New()

	c.Set(KeyRecentOrders, []string{"o1"}, time.Minute)
	c.Set(KeyDashboardStats, "stats", time.Minute)
	c.Set("unrelated", "kept", time.Minute)

	c.InvalidateOrderViews()

	_, ok := c.Get(KeyRecentOrders)
	assert.False(t, ok)
	_, ok = c.Get(KeyDashboardStats)
	assert.False(t, ok)
	_, ok = c.Get("unrelated")
	assert.True(t, ok)
}

func TestCache_SweepRemovesExpired(t *testing.T) {
	base := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	c := New()
	c.now = func() time.Time { return base }

	c.Set("old", 1, time.Minute)
	c.Set("new", 2, time.Hour)

	c.sweep(base.Add(10 * time.Minute))

	c.mu.RLock()
	defer c.mu.RUnlock()
	assert.NotContains(t, c.entries, "old")
	assert.Contains(t, c.entries, "new")
}
