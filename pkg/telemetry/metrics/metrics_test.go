package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"rvx-hq/relay/pkg/cache"
	"rvx-hq/relay/pkg/config"
)

func testConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Enabled:   true,
		Namespace: "rvx",
		Subsystem: "relay",
		Path:      "/metrics",
	}
}

// counterValue reads a counter's current value from the registry.
func counterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metric:
		for _, m := range mf.GetMetric() {
			for k, v := range labels {
				if !hasLabel(m, k, v) {
					continue metric
				}
			}
			if m.GetCounter() != nil {
				return m.GetCounter().GetValue()
			}
			if m.GetGauge() != nil {
				return m.GetGauge().GetValue()
			}
		}
	}
	return 0
}

func hasLabel(m *dto.Metric, key, value string) bool {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == key && lp.GetValue() == value {
			return true
		}
	}
	return false
}

func TestCacheMetrics_ObserveDeltas(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.Cache().Observe(cache.Stats{Entries: 3, Hits: 10, Misses: 4})
	collector.Cache().Observe(cache.Stats{Entries: 5, Hits: 12, Misses: 6, Evictions: 1})

	reg := collector.Registry()
	if got := counterValue(t, reg, "rvx_relay_cache_hits_total", nil); got != 12 {
		t.Errorf("hits = %v, want 12", got)
	}
	if got := counterValue(t, reg, "rvx_relay_cache_misses_total", nil); got != 6 {
		t.Errorf("misses = %v, want 6", got)
	}
	if got := counterValue(t, reg, "rvx_relay_cache_evictions_total", nil); got != 1 {
		t.Errorf("evictions = %v, want 1", got)
	}
	if got := counterValue(t, reg, "rvx_relay_cache_entries", nil); got != 5 {
		t.Errorf("entries gauge = %v, want 5", got)
	}
}

func TestCacheMetrics_IgnoresStaleSnapshot(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.Cache().Observe(cache.Stats{Hits: 10})
	collector.Cache().Observe(cache.Stats{Hits: 8}) // out of order

	if got := counterValue(t, collector.Registry(), "rvx_relay_cache_hits_total", nil); got != 10 {
		t.Errorf("hits = %v, want 10 (stale snapshot must not advance counters)", got)
	}
}

func TestRateLimitMetrics_Outcomes(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.RateLimit().RecordDecision(true)
	collector.RateLimit().RecordDecision(true)
	collector.RateLimit().RecordDecision(false)

	reg := collector.Registry()
	if got := counterValue(t, reg, "rvx_relay_ratelimit_decisions_total", map[string]string{"outcome": "admitted"}); got != 2 {
		t.Errorf("admitted = %v, want 2", got)
	}
	if got := counterValue(t, reg, "rvx_relay_ratelimit_decisions_total", map[string]string{"outcome": "rejected"}); got != 1 {
		t.Errorf("rejected = %v, want 1", got)
	}
}

func TestProviderMetrics_Outcomes(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.Provider().RecordCall("openai", nil, 500*time.Millisecond)
	collector.Provider().RecordCall("openai", errors.New("boom"), time.Second)
	collector.Provider().RecordTokens("openai", 100, 40)

	reg := collector.Registry()
	if got := counterValue(t, reg, "rvx_relay_provider_requests_total", map[string]string{"outcome": "success"}); got != 1 {
		t.Errorf("success = %v, want 1", got)
	}
	if got := counterValue(t, reg, "rvx_relay_provider_requests_total", map[string]string{"outcome": "error"}); got != 1 {
		t.Errorf("error = %v, want 1", got)
	}
	if got := counterValue(t, reg, "rvx_relay_provider_tokens_total", map[string]string{"kind": "prompt"}); got != 100 {
		t.Errorf("prompt tokens = %v, want 100", got)
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var collector *Collector

	// None of these may panic.
	collector.Cache().Observe(cache.Stats{Hits: 1})
	collector.RateLimit().RecordDecision(true)
	collector.Request().RecordRequest("/v1/explain", "200", time.Millisecond)
	collector.Request().IncInFlight()
	collector.Request().DecInFlight()
	collector.Provider().RecordCall("openai", nil, time.Second)
}

func TestHandler_ServesExposition(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	collector.RateLimit().RecordDecision(true)

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "rvx_relay_ratelimit_decisions_total") {
		t.Error("exposition output missing expected metric family")
	}
}
