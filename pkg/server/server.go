package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"rvx-hq/relay/pkg/cache"
	"rvx-hq/relay/pkg/config"
	"rvx-hq/relay/pkg/conversation"
	"rvx-hq/relay/pkg/providers"
	"rvx-hq/relay/pkg/telemetry/health"
	"rvx-hq/relay/pkg/telemetry/metrics"
	"rvx-hq/relay/pkg/usage"
)

// Dependencies are the wired components the server serves.
type Dependencies struct {
	Cache         *cache.Cache[Answer]
	Limiter       Limiter
	Provider      providers.Provider
	Conversations conversation.Store
	Usage         *usage.Recorder
	Metrics       *metrics.Collector
	Health        *health.Checker
}

// Server is the RVX Relay HTTP API server.
type Server struct {
	config *config.Config

	cache         *cache.Cache[Answer]
	limiter       Limiter
	provider      providers.Provider
	conversations conversation.Store
	usage         *usage.Recorder
	metrics       *metrics.Collector
	health        *health.Checker

	rateLimitMax int
	maxTurns     int
	maxTokens    int
	temperature  float64
	systemPrompt string

	httpServer   *http.Server
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer creates the API server from configuration and wired
// dependencies.
func NewServer(cfg *config.Config, deps Dependencies) *Server {
	return &Server{
		config:        cfg,
		cache:         deps.Cache,
		limiter:       deps.Limiter,
		provider:      deps.Provider,
		conversations: deps.Conversations,
		usage:         deps.Usage,
		metrics:       deps.Metrics,
		health:        deps.Health,
		rateLimitMax:  cfg.RateLimit.MaxRequests,
		maxTurns:      cfg.Conversation.MaxTurns,
		maxTokens:     cfg.Provider.MaxTokens,
		temperature:   cfg.Provider.Temperature,
		systemPrompt:  cfg.Provider.SystemPrompt,
		shutdownChan:  make(chan struct{}),
	}
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Addr:           s.config.Server.ListenAddress,
		Handler:        s.setupRoutes(),
		ReadTimeout:    s.config.Server.ReadTimeout,
		WriteTimeout:   s.config.Server.WriteTimeout,
		IdleTimeout:    s.config.Server.IdleTimeout,
		MaxHeaderBytes: s.config.Server.MaxHeaderBytes,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting api server", "address", s.config.Server.ListenAddress)

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		slog.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	case <-s.shutdownChan:
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the server, waiting up to the
// configured shutdown timeout for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		slog.Info("initiating graceful shutdown",
			"timeout", s.config.Server.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		slog.Info("api server stopped")
	})

	return shutdownErr
}

// setupRoutes configures HTTP routes and the middleware chain.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/explain", s.handleExplain)
	mux.HandleFunc("GET /v1/limits/{identity}", s.handleLimitsGet)
	mux.HandleFunc("POST /v1/limits/{identity}/reset", s.handleLimitsReset)
	mux.HandleFunc("GET /v1/usage/{identity}", s.handleUsageGet)

	mux.Handle("GET /healthz", health.LivenessHandler())
	mux.Handle("GET /readyz", health.ReadinessHandler(s.health))

	if s.config.Telemetry.Metrics.Enabled {
		mux.Handle("GET "+s.config.Telemetry.Metrics.Path, s.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = metricsMiddleware(s.metrics)(handler)
	handler = requestIDMiddleware(handler)
	handler = loggingMiddleware(handler)
	handler = recoveryMiddleware(handler)

	return handler
}
