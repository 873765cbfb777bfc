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
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"polaris-hq/polaris/pkg/config"
	"polaris-hq/polaris/pkg/policy/compile"
	"polaris-hq/polaris/pkg/policy/manager"
	"polaris-hq/polaris/pkg/policy/residual"
	"polaris-hq/polaris/pkg/policy/store"
	"polaris-hq/polaris/pkg/telemetry/metrics"
)

// PolicyService is the interface the server needs from the policy
// manager.
type PolicyService interface {
	Check(id string, doc map[string]interface{}) (residual.Result, error)
	CheckAll(doc map[string]interface{}) (map[string]residual.Result, error)
	GetPolicy(id string) (*manager.Policy, error)
	GetAllPolicies() []*manager.Policy
	GetPolicyVersion() string
	GetLastLoadTime() time.Time
	GetLastLoadError() error
}

// DecisionRecorder appends check outcomes to a decision log.
type DecisionRecorder interface {
	RecordDecision(ctx context.Context, d *store.Decision) error
}

// Server is the HTTP API for policy checks.
type Server struct {
	config      *config.Config
	policies    PolicyService
	compileOpts *compile.Options
	recorder    DecisionRecorder
	logger      *slog.Logger

	registry *prometheus.Registry
	metrics  *metrics.EvaluationMetrics

	httpServer   *http.Server
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer creates a new check server. compileOpts must match the
// options the policies were compiled with, so check and explain agree
// on the operator table; nil uses the defaults. The recorder is
// optional; when nil, decisions are not persisted.
func NewServer(cfg *config.Config, policies PolicyService, compileOpts *compile.Options, recorder DecisionRecorder, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:       cfg,
		policies:     policies,
		compileOpts:  compileOpts,
		recorder:     recorder,
		logger:       logger.With("component", "server"),
		shutdownChan: make(chan struct{}),
	}

	if cfg.Telemetry.Metrics.Enabled {
		s.registry = prometheus.NewRegistry()
		s.metrics = metrics.NewEvaluationMetrics(cfg.Telemetry.Metrics.Namespace, s.registry)
	}

	return s
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
		Handler:        s.Handler(),
		ReadTimeout:    s.config.Server.ReadTimeout,
		WriteTimeout:   s.config.Server.WriteTimeout,
		IdleTimeout:    s.config.Server.IdleTimeout,
		MaxHeaderBytes: s.config.Server.MaxHeaderBytes,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("Starting check server",
			"address", s.config.Server.ListenAddress,
			"policy_version", s.policies.GetPolicyVersion(),
		)

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		s.logger.Info("Context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		s.logger.Info("Received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	case <-s.shutdownChan:
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

		s.logger.Info("Initiating graceful shutdown",
			"timeout", s.config.Server.ShutdownTimeout.String(),
		)

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("Error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("Check server stopped")
	})

	return shutdownErr
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the configured HTTP handler, for embedding and tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/check", s.handleCheck)
	mux.HandleFunc("/v1/explain", s.handleExplain)
	mux.HandleFunc("/v1/policies", s.handlePolicies)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)

	if s.registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}

	var handler http.Handler = mux
	handler = loggingMiddleware(s.logger)(handler)
	handler = requestIDMiddleware(handler)
	handler = recoveryMiddleware(s.logger)(handler)

	return handler
}
