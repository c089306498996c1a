package cache

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingMetrics struct {
	hits, misses atomic.Int64
}

func (m *countingMetrics) IncrementCacheHit()  { m.hits.Add(1) }
func (m *countingMetrics) IncrementCacheMiss() { m.misses.Add(1) }

func TestCache_GetSet(t *testing.T) {
	metrics := &countingMetrics{}
	c := NewCache[string](time.Minute, 0, metrics)
	defer c.Close()

	_, ok := c.Get("subject-1")
	assert.False(t, ok)

	c.Set("subject-1", "baseline")
	v, ok := c.Get("subject-1")
	assert.True(t, ok)
	assert.Equal(t, "baseline", v)
	assert.Equal(t, 1, c.Size())

	c.Delete("subject-1")
	_, ok = c.Get("subject-1")
	assert.False(t, ok)

	assert.Equal(t, int64(1), metrics.hits.Load())
	assert.Equal(t, int64(2), metrics.misses.Load())
}

func TestCache_Expiry(t *testing.T) {
	now := time.Unix(0, 0)
	c := NewCache[int](time.Second, 0, nil)
	c.now = func() time.Time { return now }

	c.Set("a", 1)
	c.Set("b", 2)

	now = now.Add(500 * time.Millisecond)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	now = now.Add(time.Second)
	_, ok = c.Get("a")
	assert.False(t, ok)

	stats := c.Stats()
	assert.Equal(t, 2, stats["total_items"])
	assert.Equal(t, 2, stats["expired_items"])

	assert.Equal(t, 2, c.Sweep())
	assert.Equal(t, 0, c.Size())
}

func TestCache_ZeroTTLDisablesCaching(t *testing.T) {
	c := NewCache[int](0, 0, nil)
	c.Set("a", 1)
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestCache_Clear(t *testing.T) {
	c := NewCache[int](time.Minute, time.Millisecond, nil)
	defer c.Close()

	for i := 0; i < 10; i++ {
		c.Set(string(rune('a'+i)), i)
	}
	c.Clear()
	assert.Equal(t, 0, c.Size())
}

func TestCache_Concurrent(t *testing.T) {
	c := NewCache[int](time.Minute, 0, nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Set("k", i)
				c.Get("k")
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, c.Size())
}
