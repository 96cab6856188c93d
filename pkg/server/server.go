// Package server provides the HTTP API over the evidence custody store.
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

	"custodia-hq/custodia/pkg/config"
	"custodia-hq/custodia/pkg/custody/anchor"
	"custodia-hq/custodia/pkg/custody/integrity"
	"custodia-hq/custodia/pkg/custody/store"
	"custodia-hq/custodia/pkg/server/middleware"
	"custodia-hq/custodia/pkg/telemetry/health"
	"custodia-hq/custodia/pkg/telemetry/metrics"
)

// Server is the HTTP API server for the custody ledger.
type Server struct {
	config  *config.ServerConfig
	store   *store.Store
	sweeper *integrity.Sweeper
	anchors anchor.Log
	metrics *metrics.Collector
	checker *health.Checker

	metricsPath string
	version     string
	commit      string
	buildTime   string

	httpServer   *http.Server
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// Options bundles the dependencies of a Server.
type Options struct {
	Config      *config.ServerConfig
	Store       *store.Store
	Sweeper     *integrity.Sweeper
	Anchors     anchor.Log
	Metrics     *metrics.Collector
	Checker     *health.Checker
	MetricsPath string

	// Build information served by GET /version.
	Version   string
	Commit    string
	BuildTime string
}

// NewServer creates an API server. Metrics and checker must be non-nil;
// the anchor log may be nil.
func NewServer(opts Options) *Server {
	metricsPath := opts.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}

	return &Server{
		config:       opts.Config,
		store:        opts.Store,
		sweeper:      opts.Sweeper,
		anchors:      opts.Anchors,
		metrics:      opts.Metrics,
		checker:      opts.Checker,
		metricsPath:  metricsPath,
		version:      opts.Version,
		commit:       opts.Commit,
		buildTime:    opts.BuildTime,
		shutdownChan: make(chan struct{}),
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

	handler := s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:           s.config.ListenAddress,
		Handler:        handler,
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting custody API server",
			"address", s.config.ListenAddress,
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

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
		slog.Info("shutdown requested")
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		slog.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
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

		slog.Info("custody API server stopped")
	})

	return shutdownErr
}

// setupRoutes configures HTTP routes and the middleware chain.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /evidence", s.handleIntake)
	mux.HandleFunc("GET /evidence", s.handleQuery)
	mux.HandleFunc("GET /evidence/{id}", s.handleGet)
	mux.HandleFunc("PATCH /evidence/{id}", s.handleUpdate)
	mux.HandleFunc("POST /evidence/{id}/events", s.handleRecordEvent)
	mux.HandleFunc("GET /evidence/{id}/events", s.handleHistory)
	mux.HandleFunc("GET /evidence/{id}/verify", s.handleVerify)
	mux.HandleFunc("GET /evidence/{id}/anchors", s.handleAnchors)
	mux.HandleFunc("GET /export", s.handleExport)
	mux.HandleFunc("POST /integrity/sweep", s.handleSweep)

	mux.HandleFunc("/healthz", s.checker.LivenessHandler())
	mux.HandleFunc("/readyz", s.checker.ReadinessHandler())
	mux.HandleFunc("GET /version", health.VersionHandler(s.version, s.commit, s.buildTime))
	mux.Handle("GET "+s.metricsPath, s.metrics.Handler())

	var handler http.Handler = mux

	handler = middleware.Timeout(s.config.RequestTimeout)(handler)
	handler = middleware.CORS(s.corsConfig())(handler)
	handler = middleware.Metrics(s.metrics)(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Logging(handler)
	handler = middleware.Recovery(handler)

	return handler
}

// Handler returns the configured HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// corsConfig derives CORS settings from the server configuration. An empty
// origin list disables CORS entirely.
func (s *Server) corsConfig() *middleware.CORSConfig {
	if len(s.config.CORSAllowedOrigins) == 0 {
		return &middleware.CORSConfig{Enabled: false}
	}

	cfg := middleware.DefaultCORSConfig()
	cfg.AllowedOrigins = s.config.CORSAllowedOrigins
	return cfg
}
