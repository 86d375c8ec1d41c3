// Package metrics provides Prometheus instrumentation for RVX Relay.
//
// # Overview
//
// A single Collector owns the Prometheus registry and the per-concern
// metric groups:
//
//   - cache: hits, misses, evictions, expirations, current entries
//   - ratelimit: admission decisions by outcome
//   - request: HTTP request durations, in-flight gauge
//   - provider: upstream LLM call durations and failures
//
// All metrics share a configured namespace and subsystem (default
// rvx_relay_*). The Collector is optional everywhere it is accepted; a
// nil Collector records nothing, so disabled metrics cost only a nil
// check.
package metrics
