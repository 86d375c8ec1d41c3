package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"rvx-hq/relay/pkg/config"
)

// ProviderMetrics tracks upstream LLM calls.
//
// Metrics:
//   - rvx_relay_provider_requests_total{provider, outcome}
//   - rvx_relay_provider_duration_seconds{provider}
//   - rvx_relay_provider_tokens_total{provider, kind}
type ProviderMetrics struct {
	requestsTotal *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	tokensTotal   *prometheus.CounterVec
}

func newProviderMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ProviderMetrics {
	pm := &ProviderMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_requests_total",
				Help:      "Total upstream LLM requests by outcome",
			},
			[]string{"provider", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_duration_seconds",
				Help:      "Upstream LLM request duration",
				Buckets:   []float64{.1, .5, 1, 2.5, 5, 10, 20, 30, 60},
			},
			[]string{"provider"},
		),
		tokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_tokens_total",
				Help:      "Total tokens consumed by kind (prompt, completion)",
			},
			[]string{"provider", "kind"},
		),
	}

	registry.MustRegister(pm.requestsTotal, pm.duration, pm.tokensTotal)
	return pm
}

// RecordCall records one upstream call with its outcome and duration.
func (pm *ProviderMetrics) RecordCall(provider string, err error, duration time.Duration) {
	if pm == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	pm.requestsTotal.WithLabelValues(provider, outcome).Inc()
	pm.duration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordTokens records token consumption for one completed call.
func (pm *ProviderMetrics) RecordTokens(provider string, promptTokens, completionTokens int) {
	if pm == nil {
		return
	}
	pm.tokensTotal.WithLabelValues(provider, "prompt").Add(float64(promptTokens))
	pm.tokensTotal.WithLabelValues(provider, "completion").Add(float64(completionTokens))
}
