package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"rvx-hq/relay/pkg/cache"
	"rvx-hq/relay/pkg/cli"
	"rvx-hq/relay/pkg/config"
	"rvx-hq/relay/pkg/conversation"
	"rvx-hq/relay/pkg/janitor"
	"rvx-hq/relay/pkg/providers"
	"rvx-hq/relay/pkg/providers/openai"
	"rvx-hq/relay/pkg/ratelimit"
	"rvx-hq/relay/pkg/server"
	"rvx-hq/relay/pkg/telemetry/health"
	"rvx-hq/relay/pkg/telemetry/logging"
	"rvx-hq/relay/pkg/telemetry/metrics"
	"rvx-hq/relay/pkg/usage"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
	watch         bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the RVX Relay server",
	Long: `Start the RVX Relay server with the specified configuration.

The server listens on the configured address and answers explanation
requests through the configured LLM provider, with caching, per-user
rate limiting, and usage accounting.

Examples:
  # Start with default config
  rvx run

  # Start with custom config
  rvx run --config /etc/rvx/config.yaml

  # Override listen address
  rvx run --listen 0.0.0.0:8080

  # Validate config without starting server
  rvx run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
	runCmd.Flags().BoolVar(&runFlags.watch, "watch", true, "reload logging configuration on config file changes")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logger, err := logging.New(&cfg.Telemetry.Logging, os.Stdout)
	if err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	printBanner(cfg)

	ctx, cancel := context.WithCancel(cli.SetupSignalHandler())
	defer cancel()

	// Core: cache and rate limiter
	responseCache, err := cache.New[server.Answer](cfg.Cache.MaxEntries, cfg.Cache.TTL)
	if err != nil {
		return fmt.Errorf("failed to create cache: %w", err)
	}
	limiter, err := ratelimit.New(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)
	if err != nil {
		return fmt.Errorf("failed to create rate limiter: %w", err)
	}

	// Telemetry
	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
	checker := health.NewChecker(2 * time.Second)

	// Provider
	provider := openai.New(providers.Config{
		Name:            cfg.Provider.Name,
		BaseURL:         cfg.Provider.BaseURL,
		APIKey:          cfg.Provider.APIKey,
		Model:           cfg.Provider.Model,
		Timeout:         cfg.Provider.Timeout,
		MaxRetries:      cfg.Provider.MaxRetries,
		MaxIdleConns:    cfg.Provider.MaxIdleConns,
		IdleConnTimeout: cfg.Provider.IdleConnTimeout,
	})
	defer provider.Close()
	checker.Register("provider", func(context.Context) error {
		if !provider.Healthy() {
			return fmt.Errorf("provider %q is unhealthy", provider.Name())
		}
		return nil
	})
	slog.Info("provider initialized",
		"provider", cfg.Provider.Name,
		"model", cfg.Provider.Model,
	)

	// Conversation context store
	conversations, err := newConversationStore(cfg, checker)
	if err != nil {
		return err
	}
	defer conversations.Close()

	// Usage accounting
	var recorder *usage.Recorder
	var usageStorage *usage.SQLiteStorage
	if cfg.Usage.Enabled {
		if err := ensureParentDir(cfg.Usage.Path); err != nil {
			return fmt.Errorf("failed to create usage directory: %w", err)
		}
		usageStorage, err = usage.NewSQLiteStorage(cfg.Usage.Path)
		if err != nil {
			return fmt.Errorf("failed to open usage storage: %w", err)
		}
		defer usageStorage.Close()
		checker.Register("usage", usageStorage.Ping)

		recorder = usage.NewRecorder(usageStorage, &usage.RecorderConfig{
			Enabled:    true,
			BufferSize: cfg.Usage.BufferSize,
		})
		defer recorder.Close()
		slog.Info("usage accounting initialized", "path", cfg.Usage.Path)
	} else {
		slog.Info("usage accounting disabled")
	}

	// Background sweeps
	sweeper := janitor.New()
	sweeper.Register(janitor.Job{
		Name:     "cache-expired",
		Schedule: cfg.Janitor.CacheSweep,
		Run: func(context.Context) (int, error) {
			removed := responseCache.ClearExpired()
			collector.Cache().Observe(responseCache.Stats())
			return removed, nil
		},
	})
	sweeper.Register(janitor.Job{
		Name:     "limiter-idle",
		Schedule: cfg.Janitor.LimiterSweep,
		Run: func(context.Context) (int, error) {
			return limiter.SweepIdle(), nil
		},
	})
	sweeper.Register(janitor.Job{
		Name:     "retention",
		Schedule: cfg.Janitor.RetentionSweep,
		Run: func(ctx context.Context) (int, error) {
			removed, err := conversations.Cleanup(ctx, time.Now().Add(-cfg.Conversation.Retention))
			if err != nil {
				return removed, err
			}
			if usageStorage != nil {
				n, err := usageStorage.Cleanup(ctx, time.Now().Add(-cfg.Usage.Retention))
				removed += n
				if err != nil {
					return removed, err
				}
			}
			return removed, nil
		},
	})
	if err := sweeper.Start(ctx); err != nil {
		return fmt.Errorf("failed to start janitor: %w", err)
	}
	defer sweeper.Stop()

	// Config watcher: picks up logging changes without a restart.
	if runFlags.watch {
		watcher, werr := config.NewWatcher(cfgFile, logger)
		if werr != nil {
			slog.Warn("config watcher unavailable", "error", werr)
		} else {
			go func() {
				err := watcher.Watch(ctx, func(next *config.Config) {
					if _, lerr := logging.New(&next.Telemetry.Logging, os.Stdout); lerr != nil {
						slog.Error("failed to apply reloaded logging config", "error", lerr)
						return
					}
					slog.Info("logging configuration reloaded",
						"level", next.Telemetry.Logging.Level,
						"format", next.Telemetry.Logging.Format,
					)
				})
				if err != nil {
					slog.Warn("config watcher stopped", "error", err)
				}
			}()
			defer watcher.Stop()
		}
	}

	srv := server.NewServer(cfg, server.Dependencies{
		Cache:         responseCache,
		Limiter:       limiter,
		Provider:      provider,
		Conversations: conversations,
		Usage:         recorder,
		Metrics:       collector,
		Health:        checker,
	})

	// Blocks until signal or context cancellation.
	return srv.Start(ctx)
}

func newConversationStore(cfg *config.Config, checker *health.Checker) (conversation.Store, error) {
	switch cfg.Conversation.Backend {
	case "sqlite":
		if err := ensureParentDir(cfg.Conversation.Path); err != nil {
			return nil, fmt.Errorf("failed to create conversation directory: %w", err)
		}
		store, err := conversation.NewSQLiteStore(cfg.Conversation.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open conversation store: %w", err)
		}
		checker.Register("conversations", store.Ping)
		slog.Info("conversation store initialized",
			"backend", "sqlite",
			"path", cfg.Conversation.Path,
		)
		return store, nil
	case "memory", "":
		slog.Info("conversation store initialized", "backend", "memory")
		return conversation.NewMemoryStore(cfg.Conversation.MaxTurns), nil
	default:
		return nil, fmt.Errorf("unsupported conversation backend: %s", cfg.Conversation.Backend)
	}
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func printBanner(cfg *config.Config) {
	fmt.Printf("RVX Relay %s\n", Version)
	fmt.Printf("  listen:     %s\n", cfg.Server.ListenAddress)
	fmt.Printf("  provider:   %s (%s)\n", cfg.Provider.Name, cfg.Provider.Model)
	fmt.Printf("  cache:      %d entries, %s TTL\n", cfg.Cache.MaxEntries, cfg.Cache.TTL)
	fmt.Printf("  rate limit: %d requests / %s\n", cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)
	fmt.Println()
}
