// Package cache provides a small in-process TTL cache used to avoid
// redundant provider round-trips within one screening batch. Entries are
// computed once and read-only thereafter; caches are not shared across
// unrelated batches.
package cache

import (
	"sync"
	"time"
)

// Stats reports cache performance counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Entries   int
}

type entry[V any] struct {
	value    V
	expires  time.Time
	accessed time.Time
}

// TTL is a time-bounded cache with LRU eviction at capacity.
type TTL[V any] struct {
	mu         sync.RWMutex
	entries    map[string]*entry[V]
	maxEntries int
	hits       int64
	misses     int64
	evictions  int64
}

// NewTTL creates a cache holding at most maxEntries values.
func NewTTL[V any](maxEntries int) *TTL[V] {
	if maxEntries <= 0 {
		maxEntries = 256
	}
	return &TTL[V]{
		entries:    make(map[string]*entry[V]),
		maxEntries: maxEntries,
	}
}

// Get returns the cached value if present and unexpired.
func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || time.Now().After(e.expires) {
		if ok {
			delete(c.entries, key)
		}
		c.misses++
		var zero V
		return zero, false
	}

	e.accessed = time.Now()
	c.hits++
	return e.value, true
}

// Set stores value under key for ttl.
func (c *TTL[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictLRU()
	}
	now := time.Now()
	c.entries[key] = &entry[V]{value: value, expires: now.Add(ttl), accessed: now}
}

// Len returns the number of stored entries, expired included.
func (c *TTL[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns a snapshot of the counters.
func (c *TTL[V]) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{Hits: c.hits, Misses: c.misses, Evictions: c.evictions, Entries: len(c.entries)}
}

// evictLRU removes the least recently accessed entry. Caller holds the lock.
func (c *TTL[V]) evictLRU() {
	var oldestKey string
	var oldest time.Time
	first := true
	for k, e := range c.entries {
		if first || e.accessed.Before(oldest) {
			oldestKey = k
			oldest = e.accessed
			first = false
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
		c.evictions++
	}
}
