package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/robfig/cron/v3"
)

// ValidationError describes a single invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// Validate checks the full configuration and returns the first problem
// found. All construction-time parameter validation for the cache and
// rate limiter happens here, once, at startup.
func Validate(cfg *Config) error {
	if err := validateServer(&cfg.Server); err != nil {
		return err
	}
	if err := validateProvider(&cfg.Provider); err != nil {
		return err
	}
	if err := validateCache(&cfg.Cache); err != nil {
		return err
	}
	if err := validateRateLimit(&cfg.RateLimit); err != nil {
		return err
	}
	if err := validateConversation(&cfg.Conversation); err != nil {
		return err
	}
	if err := validateUsage(&cfg.Usage); err != nil {
		return err
	}
	if err := validateJanitor(&cfg.Janitor); err != nil {
		return err
	}
	return validateTelemetry(&cfg.Telemetry)
}

func validateServer(cfg *ServerConfig) error {
	if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		return &ValidationError{"server.listen_address", fmt.Sprintf("invalid host:port %q", cfg.ListenAddress)}
	}
	if cfg.ShutdownTimeout <= 0 {
		return &ValidationError{"server.shutdown_timeout", "must be positive"}
	}
	return nil
}

func validateProvider(cfg *ProviderConfig) error {
	if cfg.BaseURL == "" {
		return &ValidationError{"provider.base_url", "required"}
	}
	if !strings.HasPrefix(cfg.BaseURL, "http://") && !strings.HasPrefix(cfg.BaseURL, "https://") {
		return &ValidationError{"provider.base_url", fmt.Sprintf("must be an http(s) URL, got %q", cfg.BaseURL)}
	}
	if cfg.Model == "" {
		return &ValidationError{"provider.model", "required"}
	}
	if cfg.Timeout <= 0 {
		return &ValidationError{"provider.timeout", "must be positive"}
	}
	if cfg.MaxRetries < 0 {
		return &ValidationError{"provider.max_retries", "must not be negative"}
	}
	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		return &ValidationError{"provider.temperature", "must be in [0, 2]"}
	}
	return nil
}

func validateCache(cfg *CacheConfig) error {
	if cfg.MaxEntries <= 0 {
		return &ValidationError{"cache.max_entries", "must be positive"}
	}
	if cfg.TTL <= 0 {
		return &ValidationError{"cache.ttl", "must be positive"}
	}
	return nil
}

func validateRateLimit(cfg *RateLimitConfig) error {
	if cfg.MaxRequests <= 0 {
		return &ValidationError{"rate_limit.max_requests", "must be positive"}
	}
	if cfg.Window <= 0 {
		return &ValidationError{"rate_limit.window", "must be positive"}
	}
	return nil
}

func validateConversation(cfg *ConversationConfig) error {
	switch cfg.Backend {
	case "memory", "sqlite":
	default:
		return &ValidationError{"conversation.backend", fmt.Sprintf("must be %q or %q, got %q", "memory", "sqlite", cfg.Backend)}
	}
	if cfg.Backend == "sqlite" && cfg.Path == "" {
		return &ValidationError{"conversation.path", "required for sqlite backend"}
	}
	if cfg.MaxTurns <= 0 {
		return &ValidationError{"conversation.max_turns", "must be positive"}
	}
	if cfg.Retention <= 0 {
		return &ValidationError{"conversation.retention", "must be positive"}
	}
	return nil
}

func validateUsage(cfg *UsageConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Path == "" {
		return &ValidationError{"usage.path", "required when usage accounting is enabled"}
	}
	if cfg.BufferSize <= 0 {
		return &ValidationError{"usage.buffer_size", "must be positive"}
	}
	if cfg.Retention <= 0 {
		return &ValidationError{"usage.retention", "must be positive"}
	}
	return nil
}

func validateJanitor(cfg *JanitorConfig) error {
	schedules := []struct {
		field string
		expr  string
	}{
		{"janitor.cache_sweep", cfg.CacheSweep},
		{"janitor.limiter_sweep", cfg.LimiterSweep},
		{"janitor.retention_sweep", cfg.RetentionSweep},
	}
	for _, s := range schedules {
		if s.expr == "" {
			continue // empty disables the sweep
		}
		if _, err := cron.ParseStandard(s.expr); err != nil {
			return &ValidationError{s.field, fmt.Sprintf("invalid cron expression %q: %v", s.expr, err)}
		}
	}
	return nil
}

func validateTelemetry(cfg *TelemetryConfig) error {
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return &ValidationError{"telemetry.logging.level", fmt.Sprintf("unknown level %q", cfg.Logging.Level)}
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		return &ValidationError{"telemetry.logging.format", fmt.Sprintf("unknown format %q", cfg.Logging.Format)}
	}
	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return &ValidationError{"telemetry.metrics.path", "must start with /"}
	}
	return nil
}
