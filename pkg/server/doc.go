// Package server provides the HTTP API for RVX Relay: the explain
// endpoint backed by the cache, rate limiter, and LLM provider, plus
// per-identity limit and usage endpoints and the operational surface
// (health, readiness, metrics).
package server
