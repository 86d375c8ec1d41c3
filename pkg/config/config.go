package config

import "time"

// Config is the root configuration structure for RVX Relay. It covers
// the HTTP API server, the upstream LLM provider, the response cache,
// per-user rate limiting, conversation context storage, usage
// accounting, scheduled housekeeping, and telemetry.
type Config struct {
	// Server contains HTTP API server configuration.
	Server ServerConfig `yaml:"server"`

	// Provider contains the upstream LLM provider configuration.
	Provider ProviderConfig `yaml:"provider"`

	// Cache configures the bounded response cache.
	Cache CacheConfig `yaml:"cache"`

	// RateLimit configures per-user admission control.
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// Conversation configures the conversation context store.
	Conversation ConversationConfig `yaml:"conversation"`

	// Usage configures usage accounting.
	Usage UsageConfig `yaml:"usage"`

	// Janitor configures scheduled housekeeping sweeps.
	Janitor JanitorConfig `yaml:"janitor"`

	// Telemetry contains logging and metrics configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP API server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire
	// request, including the body.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of
	// the response.
	// Default: 60s (provider calls can be slow)
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful
	// shutdown before in-flight requests are cut off.
	// Default: 15s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes bounds request header parsing.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`
}

// ProviderConfig contains configuration for the upstream LLM provider.
// Any OpenAI-compatible chat-completions endpoint is supported.
type ProviderConfig struct {
	// Name identifies the provider in logs and metrics.
	// Default: "openai"
	Name string `yaml:"name"`

	// BaseURL is the provider API base, e.g. "https://api.openai.com/v1".
	BaseURL string `yaml:"base_url"`

	// APIKey authenticates against the provider. Usually supplied via
	// the RVX_PROVIDER_API_KEY environment variable rather than the
	// config file.
	APIKey string `yaml:"api_key"`

	// Model is the model identifier sent with every completion request.
	Model string `yaml:"model"`

	// SystemPrompt is prepended to every conversation. It frames the
	// assistant as a crypto/finance news explainer.
	SystemPrompt string `yaml:"system_prompt"`

	// MaxTokens caps the completion length. Zero lets the provider
	// decide.
	MaxTokens int `yaml:"max_tokens"`

	// Temperature is the sampling temperature.
	// Default: 0.3 (explanations should be stable)
	Temperature float64 `yaml:"temperature"`

	// Timeout bounds a single provider HTTP request.
	// Default: 45s
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the number of retries for transient failures.
	// Default: 2
	MaxRetries int `yaml:"max_retries"`

	// MaxIdleConns configures the connection pool.
	// Default: 10
	MaxIdleConns int `yaml:"max_idle_conns"`

	// IdleConnTimeout is how long idle connections are kept.
	// Default: 90s
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`
}

// CacheConfig configures the bounded response cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached responses. Must be
	// positive.
	// Default: 1000
	MaxEntries int `yaml:"max_entries"`

	// TTL is how long a cached response stays visible. Must be
	// positive.
	// Default: 1h
	TTL time.Duration `yaml:"ttl"`
}

// RateLimitConfig configures per-user sliding-window admission control.
type RateLimitConfig struct {
	// MaxRequests is the admission cap per identity within any trailing
	// window. Must be positive.
	// Default: 10
	MaxRequests int `yaml:"max_requests"`

	// Window is the trailing window duration. Must be positive.
	// Default: 60s
	Window time.Duration `yaml:"window"`
}

// ConversationConfig configures the conversation context store.
type ConversationConfig struct {
	// Backend selects the store implementation: "memory" or "sqlite".
	// Default: "memory"
	Backend string `yaml:"backend"`

	// Path is the SQLite database file, used when Backend is "sqlite".
	// Default: "data/conversations.db"
	Path string `yaml:"path"`

	// MaxTurns is how many recent turns are fed back to the provider as
	// context.
	// Default: 6
	MaxTurns int `yaml:"max_turns"`

	// Retention is how long turns are kept before the janitor removes
	// them.
	// Default: 72h
	Retention time.Duration `yaml:"retention"`
}

// UsageConfig configures usage accounting.
type UsageConfig struct {
	// Enabled controls whether usage records are written at all.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the SQLite database file for usage records.
	// Default: "data/usage.db"
	Path string `yaml:"path"`

	// BufferSize is the async recorder buffer. Records are dropped,
	// not blocked on, when the buffer is full.
	// Default: 256
	BufferSize int `yaml:"buffer_size"`

	// Retention is how long records are kept before the janitor removes
	// them.
	// Default: 720h (30 days)
	Retention time.Duration `yaml:"retention"`
}

// JanitorConfig configures scheduled housekeeping. Each field is a
// standard cron expression; an empty expression disables that sweep.
// Sweeps are optimizations only: lazy expiry in the cache and limiter
// remains the correctness guarantee.
type JanitorConfig struct {
	// CacheSweep clears expired cache entries.
	// Default: "*/10 * * * *" (every 10 minutes)
	CacheSweep string `yaml:"cache_sweep"`

	// LimiterSweep reclaims long-idle rate limit identities.
	// Default: "0 * * * *" (hourly)
	LimiterSweep string `yaml:"limiter_sweep"`

	// RetentionSweep prunes old conversation turns and usage records.
	// Default: "30 3 * * *" (daily at 03:30)
	RetentionSweep string `yaml:"retention_sweep"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is the minimum level: "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file:line in log records.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig configures the Prometheus metrics surface.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and exposed.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Namespace is the Prometheus metric namespace.
	// Default: "rvx"
	Namespace string `yaml:"namespace"`

	// Subsystem is the Prometheus metric subsystem.
	// Default: "relay"
	Subsystem string `yaml:"subsystem"`

	// Path is where the metrics handler is mounted.
	// Default: "/metrics"
	Path string `yaml:"path"`
}
