package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"rvx-hq/relay/pkg/cache"
	"rvx-hq/relay/pkg/config"
)

// CacheMetrics tracks response cache performance.
//
// Metrics:
//   - rvx_relay_cache_hits_total
//   - rvx_relay_cache_misses_total
//   - rvx_relay_cache_evictions_total
//   - rvx_relay_cache_expirations_total
//   - rvx_relay_cache_entries
type CacheMetrics struct {
	hitsTotal        prometheus.Counter
	missesTotal      prometheus.Counter
	evictionsTotal   prometheus.Counter
	expirationsTotal prometheus.Counter
	entries          prometheus.Gauge

	// Last observed snapshot, used to convert cumulative cache stats
	// into counter increments. Guarded by mu.
	mu   sync.Mutex
	last cache.Stats
}

func newCacheMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CacheMetrics {
	cm := &CacheMetrics{
		hitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "cache_hits_total",
			Help:      "Total number of response cache hits",
		}),
		missesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "cache_misses_total",
			Help:      "Total number of response cache misses",
		}),
		evictionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "cache_evictions_total",
			Help:      "Total number of capacity evictions",
		}),
		expirationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "cache_expirations_total",
			Help:      "Total number of TTL expirations",
		}),
		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "cache_entries",
			Help:      "Current number of cached responses",
		}),
	}

	registry.MustRegister(
		cm.hitsTotal,
		cm.missesTotal,
		cm.evictionsTotal,
		cm.expirationsTotal,
		cm.entries,
	)

	return cm
}

// Observe folds a cache stats snapshot into the Prometheus metrics.
// Counters advance by the delta since the previous snapshot; the entries
// gauge is set outright. Safe for concurrent use.
func (cm *CacheMetrics) Observe(s cache.Stats) {
	if cm == nil {
		return
	}

	cm.mu.Lock()
	defer cm.mu.Unlock()

	// Snapshots can arrive out of order under concurrency; never move
	// a counter backwards.
	cm.hitsTotal.Add(delta(s.Hits, cm.last.Hits))
	cm.missesTotal.Add(delta(s.Misses, cm.last.Misses))
	cm.evictionsTotal.Add(delta(s.Evictions, cm.last.Evictions))
	cm.expirationsTotal.Add(delta(s.Expirations, cm.last.Expirations))
	cm.entries.Set(float64(s.Entries))

	if s.Hits >= cm.last.Hits {
		cm.last = s
	}
}

func delta(current, previous int64) float64 {
	if current <= previous {
		return 0
	}
	return float64(current - previous)
}
