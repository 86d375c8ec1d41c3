package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"rvx-hq/relay/pkg/config"
)

// RateLimitMetrics tracks admission control decisions.
//
// Metrics:
//   - rvx_relay_ratelimit_decisions_total{outcome="admitted"|"rejected"}
type RateLimitMetrics struct {
	decisionsTotal *prometheus.CounterVec
}

func newRateLimitMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RateLimitMetrics {
	rm := &RateLimitMetrics{
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "ratelimit_decisions_total",
				Help:      "Total admission decisions by outcome",
			},
			[]string{"outcome"},
		),
	}

	registry.MustRegister(rm.decisionsTotal)
	return rm
}

// RecordDecision records one admission decision.
func (rm *RateLimitMetrics) RecordDecision(admitted bool) {
	if rm == nil {
		return
	}
	outcome := "rejected"
	if admitted {
		outcome = "admitted"
	}
	rm.decisionsTotal.WithLabelValues(outcome).Inc()
}
