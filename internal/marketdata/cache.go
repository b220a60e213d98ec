package marketdata

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Cache is a generic in-memory cache with per-entry TTL and an LRU bound
// on entry count. Expired entries are replaced lazily on access; there is
// no background eviction. Fetches run outside the lock so a slow provider
// call never blocks other lookups; two concurrent misses for the same key
// may both fetch and the last writer wins, which is acceptable because
// entries are immutable value objects.
type Cache[K comparable, V any] struct {
	mu         sync.Mutex
	items      map[K]*list.Element
	order      *list.List // front is most recently used
	ttl        time.Duration
	maxEntries int
}

type cacheEntry[K comparable, V any] struct {
	key       K
	value     V
	timestamp time.Time
}

// NewCache creates a cache whose entries expire after ttl. maxEntries
// bounds the number of stored entries; zero means unbounded.
func NewCache[K comparable, V any](ttl time.Duration, maxEntries int) *Cache[K, V] {
	return &Cache[K, V]{
		items:      make(map[K]*list.Element),
		order:      list.New(),
		ttl:        ttl,
		maxEntries: maxEntries,
	}
}

// Get returns the value stored under key if it exists and is still fresh.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, exists := c.items[key]
	if !exists {
		var zero V
		return zero, false
	}
	entry := el.Value.(*cacheEntry[K, V])
	if time.Since(entry.timestamp) >= c.ttl {
		var zero V
		return zero, false
	}
	c.order.MoveToFront(el)
	return entry.value, true
}

// Set stores value under key with the current timestamp. An existing
// entry is replaced in place; when the cache is full the least recently
// used entry is evicted.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, exists := c.items[key]; exists {
		entry := el.Value.(*cacheEntry[K, V])
		entry.value = value
		entry.timestamp = time.Now()
		c.order.MoveToFront(el)
		return
	}

	el := c.order.PushFront(&cacheEntry[K, V]{key: key, value: value, timestamp: time.Now()})
	c.items[key] = el

	if c.maxEntries > 0 && c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*cacheEntry[K, V]).key)
		}
	}
}

// GetOrFetch returns the cached value for key, calling fetch on a miss or
// expired entry and storing the successful result. Fetch errors are
// returned without caching so the next lookup retries.
func (c *Cache[K, V]) GetOrFetch(ctx context.Context, key K, fetch func(context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	v, err := fetch(ctx)
	if err != nil {
		var zero V
		return zero, err
	}

	c.Set(key, v)
	return v, nil
}

// Len returns the number of stored entries, including expired entries
// that have not been replaced yet.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// InvalidateAll drops every entry. Used for tests and admin resets.
func (c *Cache[K, V]) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[K]*list.Element)
	c.order.Init()
}
