package providers

import (
	"context"
	"time"
)

// Message is a single turn in a conversation, provider-agnostic.
type Message struct {
	// Role identifies the sender: system, user, or assistant.
	Role string `json:"role"`

	// Content is the message text.
	Content string `json:"content"`
}

// Roles used in conversation messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// TokenUsage tracks token consumption for one completion.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionRequest is a provider-agnostic completion request. Adapters
// translate it into their wire format.
type CompletionRequest struct {
	// Model is the model identifier. Empty means the provider's
	// configured default.
	Model string `json:"model,omitempty"`

	// Messages is the conversation, oldest first. A system message, if
	// any, comes first.
	Messages []Message `json:"messages"`

	// Temperature is the sampling temperature.
	Temperature float64 `json:"temperature,omitempty"`

	// MaxTokens caps the completion length. Zero lets the provider
	// decide.
	MaxTokens int `json:"max_tokens,omitempty"`

	// User is an opaque end-user identifier forwarded for abuse
	// monitoring.
	User string `json:"user,omitempty"`
}

// Completion is a provider-agnostic completion response.
type Completion struct {
	// ID is the provider's response identifier.
	ID string `json:"id"`

	// Model is the model that produced the completion.
	Model string `json:"model"`

	// Content is the generated text.
	Content string `json:"content"`

	// Usage reports token consumption.
	Usage TokenUsage `json:"usage"`
}

// Provider is the interface implemented by LLM provider adapters.
type Provider interface {
	// Complete performs one completion request. Retries for transient
	// failures happen inside; the context bounds the whole exchange
	// including backoff waits.
	Complete(ctx context.Context, req *CompletionRequest) (*Completion, error)

	// Name returns the configured provider name for logs and metrics.
	Name() string

	// Healthy reports the provider's current health as tracked from
	// recent request outcomes.
	Healthy() bool

	// Close releases the underlying HTTP resources.
	Close() error
}

// Config configures a provider adapter.
type Config struct {
	// Name identifies the provider in logs and metrics.
	Name string

	// BaseURL is the API base, e.g. "https://api.openai.com/v1".
	BaseURL string

	// APIKey authenticates requests.
	APIKey string

	// Model is the default model identifier.
	Model string

	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt for
	// transient failures.
	MaxRetries int

	// MaxIdleConns configures the connection pool.
	MaxIdleConns int

	// IdleConnTimeout is how long idle connections are kept.
	IdleConnTimeout time.Duration
}

// Health is a snapshot of a provider's tracked health.
type Health struct {
	IsHealthy           bool
	ConsecutiveFailures int
	LastCheck           time.Time
	LastError           error
	TotalRequests       int64
	FailedRequests      int64
}
