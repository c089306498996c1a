package cache

import (
	"sync"
	"time"
)

// Metrics receives hit and miss counts
type Metrics interface {
	IncrementCacheHit()
	IncrementCacheMiss()
}

// Item represents a cached value with expiration
type Item[V any] struct {
	Value     V
	ExpiresAt time.Time
}

// IsExpired checks if the cache item has expired at now
func (i *Item[V]) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// Cache provides thread-safe caching with TTL
type Cache[V any] struct {
	mu      sync.RWMutex
	items   map[string]*Item[V]
	ttl     time.Duration
	metrics Metrics
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewCache creates a new cache with the specified TTL. Expired items are swept
// every sweep interval until Close; a zero sweep disables the background sweep.
func NewCache[V any](ttl, sweep time.Duration, metrics Metrics) *Cache[V] {
	c := &Cache[V]{
		items:   make(map[string]*Item[V]),
		ttl:     ttl,
		metrics: metrics,
		now:     time.Now,
		stop:    make(chan struct{}),
	}

	if sweep > 0 {
		go c.sweepLoop(sweep)
	}

	return c
}

func (c *Cache[V]) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

// Sweep removes expired items and returns how many were removed
func (c *Cache[V]) Sweep() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, item := range c.items {
		if item.IsExpired(now) {
			delete(c.items, key)
			removed++
		}
	}
	return removed
}

// Get retrieves an item from the cache
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	item, exists := c.items[key]
	c.mu.RUnlock()

	if !exists || item.IsExpired(c.now()) {
		if c.metrics != nil {
			c.metrics.IncrementCacheMiss()
		}
		var zero V
		return zero, false
	}

	if c.metrics != nil {
		c.metrics.IncrementCacheHit()
	}
	return item.Value, true
}

// Set stores an item in the cache
func (c *Cache[V]) Set(key string, value V) {
	if c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = &Item[V]{
		Value:     value,
		ExpiresAt: c.now().Add(c.ttl),
	}
}

// Delete removes an item from the cache
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
}

// Clear removes all items from the cache
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*Item[V])
}

// Size returns the number of items in the cache
func (c *Cache[V]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.items)
}

// Stats returns cache statistics
func (c *Cache[V]) Stats() map[string]interface{} {
	now := c.now()

	c.mu.RLock()
	defer c.mu.RUnlock()

	totalItems := len(c.items)
	expiredItems := 0

	for _, item := range c.items {
		if item.IsExpired(now) {
			expiredItems++
		}
	}

	return map[string]interface{}{
		"total_items":   totalItems,
		"expired_items": expiredItems,
		"active_items":  totalItems - expiredItems,
		"ttl_seconds":   c.ttl.Seconds(),
	}
}

// Close stops the background sweep
func (c *Cache[V]) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}
