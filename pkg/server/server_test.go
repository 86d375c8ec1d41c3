package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"rvx-hq/relay/pkg/cache"
	"rvx-hq/relay/pkg/config"
	"rvx-hq/relay/pkg/conversation"
	"rvx-hq/relay/pkg/providers"
	"rvx-hq/relay/pkg/ratelimit"
	"rvx-hq/relay/pkg/telemetry/health"
	"rvx-hq/relay/pkg/telemetry/metrics"
	"rvx-hq/relay/pkg/usage"
)

// fakeProvider is a canned LLM provider for handler tests.
type fakeProvider struct {
	calls   atomic.Int32
	content string
	err     error
}

func (f *fakeProvider) Complete(_ context.Context, req *providers.CompletionRequest) (*providers.Completion, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &providers.Completion{
		ID:      "cmpl-test",
		Model:   "gpt-4o-mini",
		Content: f.content,
		Usage:   providers.TokenUsage{PromptTokens: 12, CompletionTokens: 34, TotalTokens: 46},
	}, nil
}

func (f *fakeProvider) Name() string  { return "fake" }
func (f *fakeProvider) Healthy() bool { return true }
func (f *fakeProvider) Close() error  { return nil }

// memoryUsageStorage is an in-memory usage backend for handler tests.
type memoryUsageStorage struct {
	mu      sync.Mutex
	records []*usage.Record
}

func (m *memoryUsageStorage) Store(_ context.Context, record *usage.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	return nil
}

func (m *memoryUsageStorage) Summarize(_ context.Context, identity string) (*usage.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	summary := &usage.Summary{Identity: identity}
	for _, r := range m.records {
		if r.Identity != identity {
			continue
		}
		summary.Requests++
		if r.CacheHit {
			summary.CacheHits++
		}
		summary.PromptTokens += int64(r.PromptTokens)
		summary.CompletionTokens += int64(r.CompletionTokens)
	}
	return summary, nil
}

func (m *memoryUsageStorage) Cleanup(context.Context, time.Time) (int, error) { return 0, nil }
func (m *memoryUsageStorage) Close() error                                    { return nil }

type testEnv struct {
	handler  http.Handler
	provider *fakeProvider
	usage    *memoryUsageStorage
	limiter  *ratelimit.Limiter
}

func newTestEnv(t *testing.T, maxRequests int) *testEnv {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.RateLimit.MaxRequests = maxRequests
	cfg.Provider.SystemPrompt = "You explain crypto news."

	c, err := cache.New[Answer](100, time.Hour)
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	limiter, err := ratelimit.New(maxRequests, time.Minute)
	if err != nil {
		t.Fatalf("failed to create limiter: %v", err)
	}

	provider := &fakeProvider{content: "BTC ETFs pool investor money to track bitcoin's price."}
	usageStorage := &memoryUsageStorage{}
	recorder := usage.NewRecorder(usageStorage, &usage.RecorderConfig{
		Enabled:      true,
		BufferSize:   16,
		WriteTimeout: time.Second,
	})
	t.Cleanup(func() { recorder.Close() })

	checker := health.NewChecker(time.Second)
	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)

	srv := NewServer(cfg, Dependencies{
		Cache:         c,
		Limiter:       limiter,
		Provider:      provider,
		Conversations: conversation.NewMemoryStore(10),
		Usage:         recorder,
		Metrics:       collector,
		Health:        checker,
	})

	return &testEnv{
		handler:  srv.setupRoutes(),
		provider: provider,
		usage:    usageStorage,
		limiter:  limiter,
	}
}

func postExplain(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/explain", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestExplain_Success(t *testing.T) {
	env := newTestEnv(t, 10)

	rec := postExplain(t, env.handler, `{"identity":"alice","question":"What is a BTC ETF?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp ExplainResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Answer == "" {
		t.Error("expected a non-empty answer")
	}
	if resp.Cached {
		t.Error("first request should not be served from cache")
	}
	if resp.Model != "gpt-4o-mini" {
		t.Errorf("unexpected model %q", resp.Model)
	}
	if resp.RequestID == "" {
		t.Error("expected a request id in the response")
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("expected X-Request-ID response header")
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "9" {
		t.Errorf("expected X-RateLimit-Remaining 9, got %q", got)
	}
}

func TestExplain_CacheHitSkipsProvider(t *testing.T) {
	env := newTestEnv(t, 10)

	first := postExplain(t, env.handler, `{"identity":"alice","question":"What is a BTC ETF?"}`)
	if first.Code != http.StatusOK {
		t.Fatalf("first request failed: %d", first.Code)
	}

	// Same question with different whitespace and case still hits.
	second := postExplain(t, env.handler, `{"identity":"bob","question":"  what IS a   btc etf? "}`)
	if second.Code != http.StatusOK {
		t.Fatalf("second request failed: %d", second.Code)
	}

	var resp ExplainResponse
	if err := json.Unmarshal(second.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Cached {
		t.Error("expected cached response for normalized duplicate question")
	}
	if got := env.provider.calls.Load(); got != 1 {
		t.Errorf("expected exactly 1 provider call, got %d", got)
	}
}

func TestExplain_InvalidRequests(t *testing.T) {
	env := newTestEnv(t, 10)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{not json`},
		{"missing identity", `{"question":"why?"}`},
		{"missing question", `{"identity":"alice"}`},
		{"blank question", `{"identity":"alice","question":"   "}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postExplain(t, env.handler, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
			var body errorBody
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("failed to decode error body: %v", err)
			}
			if body.Error.Type != errTypeInvalidRequest {
				t.Errorf("expected %s, got %s", errTypeInvalidRequest, body.Error.Type)
			}
		})
	}

	if got := env.provider.calls.Load(); got != 0 {
		t.Errorf("invalid requests must not reach the provider, got %d calls", got)
	}
}

func TestExplain_RateLimited(t *testing.T) {
	env := newTestEnv(t, 1)

	first := postExplain(t, env.handler, `{"identity":"alice","question":"first question"}`)
	if first.Code != http.StatusOK {
		t.Fatalf("first request failed: %d", first.Code)
	}

	second := postExplain(t, env.handler, `{"identity":"alice","question":"second question"}`)
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", second.Code)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header on 429")
	}
	if got := second.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Errorf("expected X-RateLimit-Remaining 0, got %q", got)
	}

	// A different identity is unaffected.
	other := postExplain(t, env.handler, `{"identity":"bob","question":"third question"}`)
	if other.Code != http.StatusOK {
		t.Errorf("expected other identity to be admitted, got %d", other.Code)
	}
}

func TestExplain_RejectedBeforeCache(t *testing.T) {
	env := newTestEnv(t, 1)

	first := postExplain(t, env.handler, `{"identity":"alice","question":"What is a BTC ETF?"}`)
	if first.Code != http.StatusOK {
		t.Fatalf("first request failed: %d", first.Code)
	}

	// Even a cached question is rejected once the identity is over limit.
	second := postExplain(t, env.handler, `{"identity":"alice","question":"What is a BTC ETF?"}`)
	if second.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429 for over-limit identity even on cached question, got %d", second.Code)
	}
}

func TestExplain_ProviderErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{
			name:       "upstream rate limit",
			err:        &providers.RateLimitError{Provider: "fake", RetryAfter: 20 * time.Second},
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "auth failure",
			err:        &providers.AuthError{Provider: "fake", Message: "bad key"},
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "timeout",
			err:        &providers.TimeoutError{Provider: "fake", Timeout: time.Second},
			wantStatus: http.StatusGatewayTimeout,
		},
		{
			name:       "generic failure",
			err:        &providers.ProviderError{Provider: "fake", StatusCode: 500, Message: "boom"},
			wantStatus: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, 10)
			env.provider.err = tt.err

			rec := postExplain(t, env.handler, `{"identity":"alice","question":"anything"}`)
			if rec.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}

func TestExplain_UpstreamRateLimitPropagatesRetryAfter(t *testing.T) {
	env := newTestEnv(t, 10)
	env.provider.err = &providers.RateLimitError{Provider: "fake", RetryAfter: 20 * time.Second}

	rec := postExplain(t, env.handler, `{"identity":"alice","question":"anything"}`)
	if got := rec.Header().Get("Retry-After"); got != "20" {
		t.Errorf("expected Retry-After 20, got %q", got)
	}
}

func TestLimitsEndpoints(t *testing.T) {
	env := newTestEnv(t, 5)

	for i := 0; i < 3; i++ {
		rec := postExplain(t, env.handler, fmt.Sprintf(`{"identity":"alice","question":"question %d"}`, i))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d failed: %d", i, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/limits/alice", nil)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var stats map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("failed to decode stats: %v", err)
	}
	if stats["count_in_window"].(float64) != 3 {
		t.Errorf("expected 3 in window, got %v", stats["count_in_window"])
	}
	if stats["remaining"].(float64) != 2 {
		t.Errorf("expected 2 remaining, got %v", stats["remaining"])
	}

	req = httptest.NewRequest(http.MethodPost, "/v1/limits/alice/reset", nil)
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on reset, got %d", rec.Code)
	}

	if got := env.limiter.Stats("alice").CountInWindow; got != 0 {
		t.Errorf("expected empty window after reset, got %d", got)
	}
}

func TestUsageEndpoint(t *testing.T) {
	env := newTestEnv(t, 10)

	rec := postExplain(t, env.handler, `{"identity":"alice","question":"What is a BTC ETF?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("explain failed: %d", rec.Code)
	}

	// The usage recorder writes asynchronously.
	deadline := time.Now().Add(2 * time.Second)
	for {
		summary, err := env.usage.Summarize(context.Background(), "alice")
		if err != nil {
			t.Fatalf("Summarize failed: %v", err)
		}
		if summary.Requests > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("usage record never arrived")
		}
		time.Sleep(10 * time.Millisecond)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/usage/alice", nil)
	resp := httptest.NewRecorder()
	env.handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var summary usage.Summary
	if err := json.Unmarshal(resp.Body.Bytes(), &summary); err != nil {
		t.Fatalf("failed to decode summary: %v", err)
	}
	if summary.Requests != 1 {
		t.Errorf("expected 1 request in summary, got %d", summary.Requests)
	}
	if summary.PromptTokens != 12 || summary.CompletionTokens != 34 {
		t.Errorf("unexpected token totals: %+v", summary)
	}
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t, 10)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 from /healthz, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 from /readyz, got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, 10)

	rec := postExplain(t, env.handler, `{"identity":"alice","question":"What is a BTC ETF?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("explain failed: %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	env.handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 from /metrics, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "rvx_relay_requests_total") {
		t.Error("expected request counter in metrics exposition")
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	panicky := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	handler := recoveryMiddleware(panicky)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 after panic, got %d", rec.Code)
	}
	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if body.Error.Type != errTypeServer {
		t.Errorf("expected %s, got %s", errTypeServer, body.Error.Type)
	}
}

func TestRequestIDMiddleware_PreservesClientID(t *testing.T) {
	var seen string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	})
	handler := requestIDMiddleware(inner)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "client-supplied-id")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen != "client-supplied-id" {
		t.Errorf("expected client request id in context, got %q", seen)
	}
	if got := rec.Header().Get(RequestIDHeader); got != "client-supplied-id" {
		t.Errorf("expected client request id echoed, got %q", got)
	}
}
