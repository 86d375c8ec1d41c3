package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"rvx-hq/relay/pkg/config"
)

// Collector is the orchestrator for all Prometheus metrics. It manages
// metric registration and exposes the per-concern metric groups.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	cache     *CacheMetrics
	rateLimit *RateLimitMetrics
	request   *RequestMetrics
	provider  *ProviderMetrics
}

// NewCollector creates a collector with all metric groups registered on
// a fresh registry (or the one supplied, when non-nil).
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	return &Collector{
		config:    cfg,
		registry:  registry,
		cache:     newCacheMetrics(cfg, registry),
		rateLimit: newRateLimitMetrics(cfg, registry),
		request:   newRequestMetrics(cfg, registry),
		provider:  newProviderMetrics(cfg, registry),
	}
}

// Registry returns the underlying Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Cache returns the cache metric group. Nil-safe.
func (c *Collector) Cache() *CacheMetrics {
	if c == nil {
		return nil
	}
	return c.cache
}

// RateLimit returns the rate limit metric group. Nil-safe.
func (c *Collector) RateLimit() *RateLimitMetrics {
	if c == nil {
		return nil
	}
	return c.rateLimit
}

// Request returns the HTTP request metric group. Nil-safe.
func (c *Collector) Request() *RequestMetrics {
	if c == nil {
		return nil
	}
	return c.request
}

// Provider returns the provider metric group. Nil-safe.
func (c *Collector) Provider() *ProviderMetrics {
	if c == nil {
		return nil
	}
	return c.provider
}
