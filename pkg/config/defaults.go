package config

import "time"

// Default values applied by ApplyDefaults for fields omitted from the
// configuration file.
const (
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
	DefaultMaxHeaderBytes  = 1 << 20

	DefaultProviderName    = "openai"
	DefaultProviderTimeout = 45 * time.Second
	DefaultMaxRetries      = 2
	DefaultMaxIdleConns    = 10
	DefaultIdleConnTimeout = 90 * time.Second
	DefaultTemperature     = 0.3

	DefaultCacheMaxEntries = 1000
	DefaultCacheTTL        = time.Hour

	DefaultRateLimitMaxRequests = 10
	DefaultRateLimitWindow      = 60 * time.Second

	DefaultConversationBackend   = "memory"
	DefaultConversationPath      = "data/conversations.db"
	DefaultConversationMaxTurns  = 6
	DefaultConversationRetention = 72 * time.Hour

	DefaultUsagePath       = "data/usage.db"
	DefaultUsageBufferSize = 256
	DefaultUsageRetention  = 720 * time.Hour

	DefaultCacheSweepSchedule     = "*/10 * * * *"
	DefaultLimiterSweepSchedule   = "0 * * * *"
	DefaultRetentionSweepSchedule = "30 3 * * *"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsNamespace = "rvx"
	DefaultMetricsSubsystem = "relay"
	DefaultMetricsPath      = "/metrics"
)

// DefaultConfig returns a fully populated configuration with all
// defaults applied. Usage accounting and metrics are enabled by default.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Usage.Enabled = true
	cfg.Telemetry.Metrics.Enabled = true
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills in default values for any zero-valued fields.
// Boolean fields keep their parsed values; YAML has no way to tell an
// explicit false from an omitted field, so the enabled flags default in
// DefaultConfig, not here.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}

	if cfg.Provider.Name == "" {
		cfg.Provider.Name = DefaultProviderName
	}
	if cfg.Provider.Timeout == 0 {
		cfg.Provider.Timeout = DefaultProviderTimeout
	}
	if cfg.Provider.MaxRetries == 0 {
		cfg.Provider.MaxRetries = DefaultMaxRetries
	}
	if cfg.Provider.MaxIdleConns == 0 {
		cfg.Provider.MaxIdleConns = DefaultMaxIdleConns
	}
	if cfg.Provider.IdleConnTimeout == 0 {
		cfg.Provider.IdleConnTimeout = DefaultIdleConnTimeout
	}
	if cfg.Provider.Temperature == 0 {
		cfg.Provider.Temperature = DefaultTemperature
	}

	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = DefaultCacheMaxEntries
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = DefaultCacheTTL
	}

	if cfg.RateLimit.MaxRequests == 0 {
		cfg.RateLimit.MaxRequests = DefaultRateLimitMaxRequests
	}
	if cfg.RateLimit.Window == 0 {
		cfg.RateLimit.Window = DefaultRateLimitWindow
	}

	if cfg.Conversation.Backend == "" {
		cfg.Conversation.Backend = DefaultConversationBackend
	}
	if cfg.Conversation.Path == "" {
		cfg.Conversation.Path = DefaultConversationPath
	}
	if cfg.Conversation.MaxTurns == 0 {
		cfg.Conversation.MaxTurns = DefaultConversationMaxTurns
	}
	if cfg.Conversation.Retention == 0 {
		cfg.Conversation.Retention = DefaultConversationRetention
	}

	if cfg.Usage.Path == "" {
		cfg.Usage.Path = DefaultUsagePath
	}
	if cfg.Usage.BufferSize == 0 {
		cfg.Usage.BufferSize = DefaultUsageBufferSize
	}
	if cfg.Usage.Retention == 0 {
		cfg.Usage.Retention = DefaultUsageRetention
	}

	if cfg.Janitor.CacheSweep == "" {
		cfg.Janitor.CacheSweep = DefaultCacheSweepSchedule
	}
	if cfg.Janitor.LimiterSweep == "" {
		cfg.Janitor.LimiterSweep = DefaultLimiterSweepSchedule
	}
	if cfg.Janitor.RetentionSweep == "" {
		cfg.Janitor.RetentionSweep = DefaultRetentionSweepSchedule
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
}
