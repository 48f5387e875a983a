// Package caching holds a single memoized value that expires after a fixed
// interval measured on an injectable clock.
package caching

import (
	"context"
	"sync"
	"time"

	"github.com/juju/clock"
)

// Cache memoizes the result of one load function for ttl. The lock is not
// held while loading, so concurrent misses may each call load; the last one
// to finish wins. Failed loads are never stored.
type Cache[T any] struct {
	ttl   time.Duration
	clock clock.Clock

	mu       sync.Mutex
	value    T
	loadedAt time.Time
	valid    bool
}

// New returns an empty cache. A nil clk means the wall clock.
func New[T any](ttl time.Duration, clk clock.Clock) *Cache[T] {
	if clk == nil {
		clk = clock.WallClock
	}
	return &Cache[T]{ttl: ttl, clock: clk}
}

// Get returns the cached value while it is fresh, otherwise calls load and
// stores its result.
func (c *Cache[T]) Get(ctx context.Context, load func(context.Context) (T, error)) (T, error) {
	c.mu.Lock()
	if c.valid && c.clock.Now().Sub(c.loadedAt) < c.ttl {
		v := c.value
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	v, err := load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	c.mu.Lock()
	c.value = v
	c.loadedAt = c.clock.Now()
	c.valid = true
	c.mu.Unlock()
	return v, nil
}

// Invalidate drops the cached value so the next Get reloads.
func (c *Cache[T]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	c.value = zero
	c.valid = false
}

// TTL returns the configured expiry interval.
func (c *Cache[T]) TTL() time.Duration {
	return c.ttl
}
