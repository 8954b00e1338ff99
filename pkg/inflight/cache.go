// Package inflight implements the bounded, time-bounded admission cache
// that prevents the same destination request from being submitted twice
// while its transaction is still in flight.
package inflight

import (
	"sync"
	"time"

	"github.com/aaravm/onlyswaps-solver/pkg/swaptypes"
)

const (
	// DefaultTTL is how long a request id stays admitted after Insert,
	// long enough for a relay transaction to land or fail.
	DefaultTTL = 30 * time.Second
	// DefaultCapacity bounds the cache so a burst of requests can't grow it
	// without limit; Insert past capacity evicts the oldest entry first.
	DefaultCapacity = 1000
)

type entry struct {
	insertedAt time.Time
}

// Cache is a concurrency-safe, TTL-bounded set of request ids currently
// being executed. Grounded on the sliding-window map shape of
// internal/ratelimit.RateLimiter, generalised from a per-key timestamp list
// to a per-id single insertion time since admission here is a single-shot
// gate rather than a counted budget.
type Cache struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	entries  map[swaptypes.RequestId]entry
	order    []swaptypes.RequestId // insertion order, oldest first
}

// New builds a Cache with the given TTL and capacity. ttl <= 0 selects
// DefaultTTL; capacity <= 0 selects DefaultCapacity.
func New(ttl time.Duration, capacity int) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		ttl:      ttl,
		capacity: capacity,
		entries:  make(map[swaptypes.RequestId]entry),
	}
}

// Contains reports whether id is currently admitted (inserted and not yet
// expired). Expired entries are lazily evicted on lookup.
func (c *Cache) Contains(id swaptypes.RequestId) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		return false
	}
	if time.Since(e.insertedAt) >= c.ttl {
		delete(c.entries, id)
		return false
	}
	return true
}

// Insert admits id, evicting expired entries and, if still over capacity,
// the oldest surviving entry. Re-inserting an id already present refreshes
// its timestamp.
func (c *Cache) Insert(id swaptypes.RequestId) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.evictExpiredLocked()

	if _, exists := c.entries[id]; !exists {
		c.order = append(c.order, id)
	}
	c.entries[id] = entry{insertedAt: time.Now()}

	for len(c.entries) > c.capacity && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}

// Remove drops id from the cache immediately, without waiting for its TTL.
// The executor does not call it; admitted ids leave the cache by expiry or
// capacity eviction.
func (c *Cache) Remove(id swaptypes.RequestId) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

// Len returns the number of currently admitted, non-expired ids.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictExpiredLocked()
	return len(c.entries)
}

func (c *Cache) evictExpiredLocked() {
	if len(c.order) == 0 {
		return
	}
	cutoff := 0
	for _, id := range c.order {
		e, ok := c.entries[id]
		if !ok || time.Since(e.insertedAt) >= c.ttl {
			delete(c.entries, id)
			cutoff++
			continue
		}
		break
	}
	if cutoff > 0 {
		c.order = c.order[cutoff:]
	}
}
