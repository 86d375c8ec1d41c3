// Package ratelimit provides a thread-safe per-identity sliding-window
// rate limiter.
//
// # Algorithm
//
// Each identity owns an ordered slice of admission timestamps. On every
// Allow call the limiter prunes timestamps older than the window, rejects
// if the remaining count has reached the maximum, and otherwise appends
// the current instant. The window slides continuously from "now"
// backward; there are no fixed-aligned buckets and no reset spikes.
//
// # Atomicity
//
// The whole prune-decide-append sequence runs under a single mutex, so
// concurrent callers for the same identity can never both be admitted
// into the last remaining slot. Effects per identity are linearizable.
//
// # Memory
//
// State is created lazily on an identity's first request and self-prunes
// on every call, so memory is bounded by distinct identities times the
// per-window maximum. SweepIdle reclaims identities whose windows have
// drained; it is optional housekeeping, typically cron-driven.
package ratelimit
