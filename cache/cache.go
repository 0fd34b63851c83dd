package cache

import (
	"sync"
	"time"
)

// entry is a stored value plus its expiration time.
type entry[V any] struct {
	value     V
	expiresAt int64 // UnixNano, 0 means no expiration
}

func (e entry[V]) expired(now int64) bool {
	return e.expiresAt != 0 && now > e.expiresAt
}

// Cache is a thread-safe, generic cache with TTL support.
// The zero value is not usable; use NewCache.
type Cache[K comparable, V any] struct {
	mu         sync.RWMutex
	items      map[K]entry[V]
	defaultTTL time.Duration

	janitorInterval time.Duration
	janitorOnce     sync.Once
	stopJanitor     chan struct{}
	closeOnce       sync.Once
}

// Option is a functional option type for Cache configuration.
type Option[K comparable, V any] func(*Cache[K, V])

// WithDefaultTTL sets the default Time-To-Live for items in the cache.
// Items set without a specific TTL will use this value.
func WithDefaultTTL[K comparable, V any](ttl time.Duration) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.defaultTTL = ttl
	}
}

// WithJanitorInterval sets the interval at which expired items are swept.
// The janitor starts lazily on the first expiring Set.
func WithJanitorInterval[K comparable, V any](interval time.Duration) Option[K, V] {
	return func(c *Cache[K, V]) {
		if interval > 0 {
			c.janitorInterval = interval
		}
	}
}

// NewCache creates a new Cache instance with optional configurations.
func NewCache[K comparable, V any](opts ...Option[K, V]) *Cache[K, V] {
	c := &Cache[K, V]{
		items:           make(map[K]entry[V]),
		janitorInterval: 5 * time.Minute,
		stopJanitor:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache[K, V]) startJanitor() {
	c.janitorOnce.Do(func() {
		ticker := time.NewTicker(c.janitorInterval)
		go func() {
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					c.DeleteExpired()
				case <-c.stopJanitor:
					return
				}
			}
		}()
	})
}

// Set adds or updates an item in the cache with the default TTL (if configured).
func (c *Cache[K, V]) Set(k K, v V) {
	c.SetWithTTL(k, v, c.defaultTTL)
}

// SetWithTTL adds or updates an item with a specific TTL.
// A zero TTL stores the item without expiration; a negative TTL removes it.
func (c *Cache[K, V]) SetWithTTL(k K, v V, ttl time.Duration) {
	if ttl < 0 {
		c.Delete(k)
		return
	}
	var expiresAt int64
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl).UnixNano()
		c.startJanitor()
	}
	c.mu.Lock()
	c.items[k] = entry[V]{value: v, expiresAt: expiresAt}
	c.mu.Unlock()
}

// Get returns the value for k if present and not expired.
func (c *Cache[K, V]) Get(k K) (V, bool) {
	c.mu.RLock()
	e, ok := c.items[k]
	c.mu.RUnlock()
	if !ok || e.expired(time.Now().UnixNano()) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// GetOrSet returns the existing value for k if present, otherwise stores v
// with the default TTL. The second return value reports whether the value
// was already present.
func (c *Cache[K, V]) GetOrSet(k K, v V) (V, bool) {
	return c.GetOrSetWithTTL(k, v, c.defaultTTL)
}

// GetOrSetWithTTL is GetOrSet with an explicit TTL for the stored value.
func (c *Cache[K, V]) GetOrSetWithTTL(k K, v V, ttl time.Duration) (V, bool) {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.items[k]; ok && !e.expired(now.UnixNano()) {
		return e.value, true
	}
	var expiresAt int64
	if ttl > 0 {
		expiresAt = now.Add(ttl).UnixNano()
	}
	c.items[k] = entry[V]{value: v, expiresAt: expiresAt}
	if expiresAt != 0 {
		// startJanitor takes no locks besides its own once guard.
		c.startJanitor()
	}
	return v, false
}

// Delete removes an item from the cache.
func (c *Cache[K, V]) Delete(k K) {
	c.mu.Lock()
	delete(c.items, k)
	c.mu.Unlock()
}

// DeleteExpired removes every expired item.
func (c *Cache[K, V]) DeleteExpired() {
	now := time.Now().UnixNano()
	c.mu.Lock()
	for k, e := range c.items {
		if e.expired(now) {
			delete(c.items, k)
		}
	}
	c.mu.Unlock()
}

// Range calls f for every live item until f returns false.
// The iteration order is unspecified.
func (c *Cache[K, V]) Range(f func(key K, value V) bool) {
	now := time.Now().UnixNano()
	c.mu.RLock()
	snapshot := make(map[K]V, len(c.items))
	for k, e := range c.items {
		if !e.expired(now) {
			snapshot[k] = e.value
		}
	}
	c.mu.RUnlock()

	for k, v := range snapshot {
		if !f(k, v) {
			return
		}
	}
}

// Clean removes all items from the cache.
func (c *Cache[K, V]) Clean() {
	c.mu.Lock()
	c.items = make(map[K]entry[V])
	c.mu.Unlock()
}

// Len returns the number of stored items, including not-yet-swept expired ones.
func (c *Cache[K, V]) Len() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return int64(len(c.items))
}

// Close stops the janitor goroutine. The cache remains usable afterwards,
// but expired items are only removed on access.
func (c *Cache[K, V]) Close() {
	c.closeOnce.Do(func() {
		close(c.stopJanitor)
	})
}

// GetTyped fetches a value and asserts it to T. It returns false when the key
// is absent, expired, or the stored value is not a T.
func GetTyped[T any, K comparable, V any](c *Cache[K, V], k K) (T, bool) {
	v, ok := c.Get(k)
	if !ok {
		var zero T
		return zero, false
	}
	typed, ok := any(v).(T)
	if !ok {
		var zero T
		return zero, false
	}
	return typed, ok
}
