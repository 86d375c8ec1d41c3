// Package cache provides a bounded, TTL-aware in-memory cache used to
// memoize expensive LLM responses.
//
// # Overview
//
// The cache is bounded both by entry count and by entry age. Expired
// entries are treated as absent and purged lazily on the next read; an
// explicit ClearExpired sweep exists for proactive reclamation and is
// typically driven by the janitor scheduler.
//
// # Eviction
//
// When a new key is inserted at capacity, exactly one entry is evicted:
// the entry with the smallest access count, ties broken by the oldest
// last-used time. Frequency-based eviction is deliberate: the same
// breaking-news text submitted by many users should survive eviction
// pressure from one-off queries, which pure recency LRU would not
// guarantee.
//
// # Thread Safety
//
// All operations are safe for concurrent use. A single coarse mutex
// protects the table; every critical section is O(capacity) or better
// and performs no I/O, so lock hold times stay bounded.
package cache
