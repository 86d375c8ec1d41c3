package cache

import (
	"fmt"
	"sync"
	"time"
)

// entry is a single cached value with the bookkeeping needed for TTL
// expiry and frequency-based eviction.
type entry[V any] struct {
	value       V
	createdAt   time.Time
	lastUsedAt  time.Time
	accessCount int64
}

// Cache is a size- and time-bounded key/value store.
//
// A Cache must be created with New. The zero value is not usable.
type Cache[V any] struct {
	maxEntries int
	ttl        time.Duration

	mu      sync.Mutex
	entries map[string]*entry[V]

	// Counters for observability. Guarded by mu.
	hits        int64
	misses      int64
	evictions   int64
	expirations int64

	// now is replaceable in tests.
	now func() time.Time
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Entries     int
	Hits        int64
	Misses      int64
	Evictions   int64
	Expirations int64
}

// New creates a cache holding at most maxEntries values, each visible for
// at most ttl after insertion. Both parameters must be positive;
// configuration errors are reported once here, never per call.
func New[V any](maxEntries int, ttl time.Duration) (*Cache[V], error) {
	if maxEntries <= 0 {
		return nil, fmt.Errorf("cache: max entries must be positive, got %d", maxEntries)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("cache: ttl must be positive, got %s", ttl)
	}

	return &Cache[V]{
		maxEntries: maxEntries,
		ttl:        ttl,
		entries:    make(map[string]*entry[V], maxEntries),
		now:        time.Now,
	}, nil
}

// Get looks up key. A present, unexpired entry is returned with ok=true
// and has its access count and last-used time bumped. An expired entry is
// removed and reported as a miss; expiry is lazy, no background sweep is
// required for correctness.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V

	e, found := c.entries[key]
	if !found {
		c.misses++
		return zero, false
	}

	now := c.now()
	if now.Sub(e.createdAt) > c.ttl {
		delete(c.entries, key)
		c.expirations++
		c.misses++
		return zero, false
	}

	e.accessCount++
	e.lastUsedAt = now
	c.hits++
	return e.value, true
}

// Set inserts or overwrites the entry for key, resetting its age and
// access count. Inserting a new key at capacity evicts exactly one
// existing entry first (see evictLocked). Overwriting never evicts.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	if e, found := c.entries[key]; found {
		e.value = value
		e.createdAt = now
		e.lastUsedAt = now
		e.accessCount = 0
		return
	}

	if len(c.entries) >= c.maxEntries {
		c.evictLocked()
	}

	c.entries[key] = &entry[V]{
		value:      value,
		createdAt:  now,
		lastUsedAt: now,
	}
}

// evictLocked removes the entry with the smallest access count, breaking
// ties by the oldest last-used time. The choice is deterministic for a
// given cache state. Caller must hold mu.
func (c *Cache[V]) evictLocked() {
	var victim string
	var victimEntry *entry[V]

	for key, e := range c.entries {
		if victimEntry == nil {
			victim, victimEntry = key, e
			continue
		}
		if e.accessCount < victimEntry.accessCount ||
			(e.accessCount == victimEntry.accessCount && e.lastUsedAt.Before(victimEntry.lastUsedAt)) {
			victim, victimEntry = key, e
		}
	}

	if victimEntry != nil {
		delete(c.entries, victim)
		c.evictions++
	}
}

// ClearExpired removes every entry whose TTL has elapsed and returns the
// number removed. Purely housekeeping: lazy expiry in Get already
// guarantees expired entries are never returned.
func (c *Cache[V]) ClearExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if now.Sub(e.createdAt) > c.ttl {
			delete(c.entries, key)
			removed++
		}
	}
	c.expirations += int64(removed)
	return removed
}

// Len returns the current entry count.
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
		Entries:     len(c.entries),
		Hits:        c.hits,
		Misses:      c.misses,
		Evictions:   c.evictions,
		Expirations: c.expirations,
	}
}
