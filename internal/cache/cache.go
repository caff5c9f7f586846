// Package cache provides a bounded, time-expiring key/value cache with
// least-recently-used eviction. It backs the short-lived market-quote and
// parsed-document caches, the only state in the service touched by many
// request handlers at once, so every operation holds one mutex across its
// whole read-modify-write sequence.
package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// Stats reports cache effectiveness counters since the last Clear.
type Stats struct {
	Size      int `json:"size"`
	Hits      int `json:"hits"`
	Misses    int `json:"misses"`
	Evictions int `json:"evictions"`
}

type entry[V any] struct {
	key       string
	value     V
	refreshed time.Time
}

// Cache is a capacity-bounded TTL cache with LRU eviction. The zero value is
// not usable; construct with New.
//
// Logical keys are hashed before use so that arbitrarily long keys (URLs,
// composite query strings) stay bounded in memory. The hash is not expected
// to collide in practice; a collision would silently alias two logical keys.
type Cache[V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	entries  map[string]*list.Element
	order    *list.List // front = most recently used

	hits      int
	misses    int
	evictions int

	now func() time.Time // injectable clock for tests
}

// New creates a cache holding at most capacity entries, each valid for ttl
// after its last Set. Both must be positive.
func New[V any](capacity int, ttl time.Duration) *Cache[V] {
	if capacity <= 0 {
		panic("cache: capacity must be positive")
	}
	if ttl <= 0 {
		panic("cache: ttl must be positive")
	}
	return &Cache[V]{
		capacity: capacity,
		ttl:      ttl,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		now:      time.Now,
	}
}

// Get returns the cached value for key. A hit bumps the entry to most
// recently used. An entry older than the TTL is purged and reported as a
// miss.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	h := hashKey(key)

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[h]
	if !ok {
		c.misses++
		return zero, false
	}

	ent := elem.Value.(*entry[V])
	if c.now().Sub(ent.refreshed) > c.ttl {
		c.order.Remove(elem)
		delete(c.entries, h)
		c.misses++
		return zero, false
	}

	c.order.MoveToFront(elem)
	c.hits++
	return ent.value, true
}

// Set inserts or replaces the value for key, resetting its age and recency.
// Inserting a brand-new key into a full cache first evicts the least
// recently used entry.
func (c *Cache[V]) Set(key string, value V) {
	h := hashKey(key)

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[h]; ok {
		ent := elem.Value.(*entry[V])
		ent.value = value
		ent.refreshed = c.now()
		c.order.MoveToFront(elem)
		return
	}

	if len(c.entries) >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*entry[V]).key)
			c.evictions++
		}
	}

	elem := c.order.PushFront(&entry[V]{key: h, value: value, refreshed: c.now()})
	c.entries[h] = elem
}

// Delete removes key from the cache, reporting whether it was present.
func (c *Cache[V]) Delete(key string) bool {
	h := hashKey(key)

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[h]
	if !ok {
		return false
	}
	c.order.Remove(elem)
	delete(c.entries, h)
	return true
}

// Clear removes all entries and resets the counters.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element)
	c.order.Init()
	c.hits = 0
	c.misses = 0
	c.evictions = 0
}

// Len returns the number of resident entries, expired or not.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a snapshot of the cache counters.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Size:      len(c.entries),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
