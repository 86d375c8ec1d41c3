package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"rvx-hq/relay/pkg/config"
)

// RequestMetrics tracks the HTTP API surface.
//
// Metrics:
//   - rvx_relay_requests_total{path, status}
//   - rvx_relay_request_duration_seconds{path}
//   - rvx_relay_requests_in_flight
type RequestMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inFlight        prometheus.Gauge
}

func newRequestMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RequestMetrics {
	rm := &RequestMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "requests_total",
				Help:      "Total HTTP requests by path and status code",
			},
			[]string{"path", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration",
				// LLM-backed requests span from sub-millisecond cache
				// hits to tens of seconds of generation.
				Buckets: []float64{.001, .005, .025, .1, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"path"},
		),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "requests_in_flight",
			Help:      "HTTP requests currently being served",
		}),
	}

	registry.MustRegister(rm.requestsTotal, rm.requestDuration, rm.inFlight)
	return rm
}

// RecordRequest records a completed HTTP request.
func (rm *RequestMetrics) RecordRequest(path, status string, duration time.Duration) {
	if rm == nil {
		return
	}
	rm.requestsTotal.WithLabelValues(path, status).Inc()
	rm.requestDuration.WithLabelValues(path).Observe(duration.Seconds())
}

// IncInFlight marks a request as started.
func (rm *RequestMetrics) IncInFlight() {
	if rm == nil {
		return
	}
	rm.inFlight.Inc()
}

// DecInFlight marks a request as finished.
func (rm *RequestMetrics) DecInFlight() {
	if rm == nil {
		return
	}
	rm.inFlight.Dec()
}
