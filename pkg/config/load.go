package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads configuration from a YAML file, applies defaults,
// environment variable overrides, and validates the result.
//
// The loading sequence is:
//  1. Parse YAML from the file
//  2. Apply default values
//  3. Apply RVX_* environment overrides
//  4. Validate the final configuration
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("configuration file %q: %w", path, err)
	}
	return cfg, nil
}

// Parse builds a configuration from raw YAML bytes, applying defaults,
// environment overrides, and validation.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	cfg.Usage.Enabled = true
	cfg.Telemetry.Metrics.Enabled = true

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	ApplyDefaults(cfg)
	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides. Variables
// use the format RVX_SECTION_FIELD and always take precedence over
// file-based configuration.
func applyEnvOverrides(cfg *Config) {
	setString("RVX_SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)

	setString("RVX_PROVIDER_BASE_URL", &cfg.Provider.BaseURL)
	setString("RVX_PROVIDER_API_KEY", &cfg.Provider.APIKey)
	setString("RVX_PROVIDER_MODEL", &cfg.Provider.Model)
	setDuration("RVX_PROVIDER_TIMEOUT", &cfg.Provider.Timeout)
	setInt("RVX_PROVIDER_MAX_RETRIES", &cfg.Provider.MaxRetries)

	setInt("RVX_CACHE_MAX_ENTRIES", &cfg.Cache.MaxEntries)
	setDuration("RVX_CACHE_TTL", &cfg.Cache.TTL)

	setInt("RVX_RATE_LIMIT_MAX_REQUESTS", &cfg.RateLimit.MaxRequests)
	setDuration("RVX_RATE_LIMIT_WINDOW", &cfg.RateLimit.Window)

	setString("RVX_CONVERSATION_BACKEND", &cfg.Conversation.Backend)
	setString("RVX_CONVERSATION_PATH", &cfg.Conversation.Path)

	setBool("RVX_USAGE_ENABLED", &cfg.Usage.Enabled)
	setString("RVX_USAGE_PATH", &cfg.Usage.Path)

	setString("RVX_LOG_LEVEL", &cfg.Telemetry.Logging.Level)
	setString("RVX_LOG_FORMAT", &cfg.Telemetry.Logging.Format)
	setBool("RVX_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
}

func setString(env string, dst *string) {
	if val := os.Getenv(env); val != "" {
		*dst = val
	}
}

func setInt(env string, dst *int) {
	if val := os.Getenv(env); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func setBool(env string, dst *bool) {
	if val := os.Getenv(env); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func setDuration(env string, dst *time.Duration) {
	if val := os.Getenv(env); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
