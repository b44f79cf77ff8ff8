// Package cache wraps a capacity-bounded LRU as a small generic
// read-through cache, the same Get/Set/Delete/Clear shape
// jra3-linear-fuse's TTL cache exposes, but bounded by entry count
// rather than time since the index doesn't need expiry — an
// invalidated row is removed explicitly the moment it's rewritten.
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache is a fixed-capacity, least-recently-used cache over comparable
// keys.
type Cache[K comparable, V any] struct {
	inner *lru.Cache[K, V]
}

// New builds a Cache holding at most capacity entries.
func New[K comparable, V any](capacity int) *Cache[K, V] {
	inner, _ := lru.New[K, V](capacity)
	return &Cache[K, V]{inner: inner}
}

// Get returns the cached value for key, if present.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	return c.inner.Get(key)
}

// Set stores value under key, evicting the least-recently-used entry
// if the cache is at capacity.
func (c *Cache[K, V]) Set(key K, value V) {
	c.inner.Add(key, value)
}

// Delete removes key, if present.
func (c *Cache[K, V]) Delete(key K) {
	c.inner.Remove(key)
}

// Clear empties the cache.
func (c *Cache[K, V]) Clear() {
	c.inner.Purge()
}
