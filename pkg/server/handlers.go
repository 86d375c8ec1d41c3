package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"rvx-hq/relay/pkg/cache"
	"rvx-hq/relay/pkg/conversation"
	"rvx-hq/relay/pkg/providers"
	"rvx-hq/relay/pkg/ratelimit"
	"rvx-hq/relay/pkg/usage"
)

// maxQuestionBytes bounds the request body to keep provider prompts
// and cache keys reasonable.
const maxQuestionBytes = 16 * 1024

// handleExplain serves POST /v1/explain: admission control, cache
// lookup, provider call with conversation context, then cache fill and
// bookkeeping.
func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req ExplainRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxQuestionBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errTypeInvalidRequest, "request body must be valid JSON")
		return
	}
	req.Identity = strings.TrimSpace(req.Identity)
	req.Question = strings.TrimSpace(req.Question)
	if req.Identity == "" {
		writeError(w, http.StatusBadRequest, errTypeInvalidRequest, "identity is required")
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, errTypeInvalidRequest, "question is required")
		return
	}

	decision := s.limiter.Allow(req.Identity)
	s.metrics.RateLimit().RecordDecision(decision.Allowed)
	if !decision.Allowed {
		retryAfter := decision.RetryAfterSeconds()
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(s.rateLimitMax))
		w.Header().Set("X-RateLimit-Remaining", "0")
		writeError(w, http.StatusTooManyRequests, errTypeRateLimit,
			"rate limit exceeded, retry after "+strconv.Itoa(retryAfter)+"s")
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(s.rateLimitMax))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

	key := cache.Fingerprint(req.Question)
	if answer, ok := s.cache.Get(key); ok {
		s.metrics.Cache().Observe(s.cache.Stats())
		s.recordUsage(&req, answer.Model, nil, true, start)
		writeJSON(w, http.StatusOK, ExplainResponse{
			Answer:    answer.Text,
			Model:     answer.Model,
			Cached:    true,
			RequestID: GetRequestID(r.Context()),
		})
		return
	}
	s.metrics.Cache().Observe(s.cache.Stats())

	messages := s.buildMessages(r, &req)

	providerStart := time.Now()
	completion, err := s.provider.Complete(r.Context(), &providers.CompletionRequest{
		Messages:    messages,
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
		User:        req.Identity,
	})
	s.metrics.Provider().RecordCall(s.provider.Name(), err, time.Since(providerStart))
	if err != nil {
		s.writeProviderError(w, r, err)
		return
	}
	s.metrics.Provider().RecordTokens(s.provider.Name(),
		completion.Usage.PromptTokens, completion.Usage.CompletionTokens)

	s.cache.Set(key, Answer{Text: completion.Content, Model: completion.Model})
	s.metrics.Cache().Observe(s.cache.Stats())

	s.appendTurns(r, &req, completion.Content)
	s.recordUsage(&req, completion.Model, &completion.Usage, false, start)

	writeJSON(w, http.StatusOK, ExplainResponse{
		Answer:    completion.Content,
		Model:     completion.Model,
		Cached:    false,
		RequestID: GetRequestID(r.Context()),
	})
}

// buildMessages assembles the provider conversation: system prompt,
// recent turns for the identity, then the new question.
func (s *Server) buildMessages(r *http.Request, req *ExplainRequest) []providers.Message {
	messages := make([]providers.Message, 0, s.maxTurns+2)
	if s.systemPrompt != "" {
		messages = append(messages, providers.Message{
			Role:    providers.RoleSystem,
			Content: s.systemPrompt,
		})
	}

	if s.conversations != nil && s.maxTurns > 0 {
		turns, err := s.conversations.Recent(r.Context(), req.Identity, s.maxTurns)
		if err != nil {
			slog.WarnContext(r.Context(), "failed to load conversation context",
				"identity", req.Identity,
				"error", err,
			)
		}
		for _, turn := range turns {
			messages = append(messages, providers.Message{
				Role:    turn.Role,
				Content: turn.Content,
			})
		}
	}

	return append(messages, providers.Message{
		Role:    providers.RoleUser,
		Content: req.Question,
	})
}

func (s *Server) appendTurns(r *http.Request, req *ExplainRequest, answer string) {
	if s.conversations == nil {
		return
	}

	turns := []conversation.Turn{
		{Identity: req.Identity, Role: providers.RoleUser, Content: req.Question},
		{Identity: req.Identity, Role: providers.RoleAssistant, Content: answer},
	}
	for i := range turns {
		if err := s.conversations.Append(r.Context(), &turns[i]); err != nil {
			slog.WarnContext(r.Context(), "failed to append conversation turn",
				"identity", req.Identity,
				"role", turns[i].Role,
				"error", err,
			)
		}
	}
}

func (s *Server) recordUsage(req *ExplainRequest, model string, tokens *providers.TokenUsage, cacheHit bool, start time.Time) {
	if s.usage == nil {
		return
	}

	record := &usage.Record{
		Identity:  req.Identity,
		Provider:  s.provider.Name(),
		Model:     model,
		CacheHit:  cacheHit,
		LatencyMs: time.Since(start).Milliseconds(),
	}
	if tokens != nil {
		record.PromptTokens = tokens.PromptTokens
		record.CompletionTokens = tokens.CompletionTokens
	}
	s.usage.Record(record)
}

func (s *Server) writeProviderError(w http.ResponseWriter, r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "provider call failed",
		"provider", s.provider.Name(),
		"request_id", GetRequestID(r.Context()),
		"error", err,
	)

	var rateLimitErr *providers.RateLimitError
	var authErr *providers.AuthError
	var timeoutErr *providers.TimeoutError
	switch {
	case errors.As(err, &rateLimitErr):
		if rateLimitErr.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(rateLimitErr.RetryAfter.Seconds())))
		}
		writeError(w, http.StatusServiceUnavailable, errTypeUpstream,
			"the language model is overloaded, please retry shortly")
	case errors.As(err, &authErr):
		writeError(w, http.StatusBadGateway, errTypeUpstream,
			"upstream authentication failed")
	case errors.As(err, &timeoutErr):
		writeError(w, http.StatusGatewayTimeout, errTypeUpstream,
			"the language model took too long to answer")
	default:
		writeError(w, http.StatusBadGateway, errTypeUpstream,
			"failed to get an answer from the language model")
	}
}

// handleLimitsGet serves GET /v1/limits/{identity}.
func (s *Server) handleLimitsGet(w http.ResponseWriter, r *http.Request) {
	identity := r.PathValue("identity")
	if identity == "" {
		writeError(w, http.StatusBadRequest, errTypeInvalidRequest, "identity is required")
		return
	}

	stats := s.limiter.Stats(identity)
	writeJSON(w, http.StatusOK, map[string]any{
		"identity":        identity,
		"count_in_window": stats.CountInWindow,
		"max_requests":    stats.MaxRequests,
		"window_seconds":  int(stats.Window.Seconds()),
		"remaining":       stats.MaxRequests - stats.CountInWindow,
	})
}

// handleLimitsReset serves POST /v1/limits/{identity}/reset.
func (s *Server) handleLimitsReset(w http.ResponseWriter, r *http.Request) {
	identity := r.PathValue("identity")
	if identity == "" {
		writeError(w, http.StatusBadRequest, errTypeInvalidRequest, "identity is required")
		return
	}

	s.limiter.Reset(identity)
	slog.InfoContext(r.Context(), "rate limit reset",
		"identity", identity,
		"request_id", GetRequestID(r.Context()),
	)
	writeJSON(w, http.StatusOK, map[string]any{
		"identity": identity,
		"reset":    true,
	})
}

// handleUsageGet serves GET /v1/usage/{identity}.
func (s *Server) handleUsageGet(w http.ResponseWriter, r *http.Request) {
	identity := r.PathValue("identity")
	if identity == "" {
		writeError(w, http.StatusBadRequest, errTypeInvalidRequest, "identity is required")
		return
	}
	if s.usage == nil {
		writeError(w, http.StatusNotFound, errTypeInvalidRequest, "usage accounting is disabled")
		return
	}

	summary, err := s.usage.Summarize(r.Context(), identity)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to summarize usage",
			"identity", identity,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, errTypeServer, "failed to summarize usage")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, errType, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{
		Message: message,
		Type:    errType,
	}})
}

// Limiter is the admission control surface the server needs.
type Limiter interface {
	Allow(identity string) ratelimit.Decision
	Reset(identity string)
	Stats(identity string) ratelimit.Stats
}
