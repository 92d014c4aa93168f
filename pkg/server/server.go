// Package server exposes the metrics and health endpoints of a long-running
// calcul process over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"regles-hq/calcul/pkg/telemetry/health"
)

// DefaultShutdownTimeout bounds the graceful shutdown of the server.
const DefaultShutdownTimeout = 5 * time.Second

// Config contains configuration for the status server.
type Config struct {
	// Address is the listen address, e.g. ":9090"
	Address string

	// MetricsPath is where metrics are served (default: /metrics)
	MetricsPath string

	// ShutdownTimeout bounds the graceful shutdown
	ShutdownTimeout time.Duration

	// Version, Commit and BuildDate are reported by /version
	Version   string
	Commit    string
	BuildDate string
}

// Server serves metrics and health endpoints.
type Server struct {
	config     *Config
	metrics    http.Handler
	checker    *health.Checker
	logger     *slog.Logger
	httpServer *http.Server

	mu        sync.Mutex
	listener  net.Listener
	isRunning bool
}

// NewServer creates a status server. metrics may be nil when metrics are
// disabled.
func NewServer(cfg *Config, metrics http.Handler, checker *health.Checker, logger *slog.Logger) *Server {
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	if checker == nil {
		checker = health.New(0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config:  cfg,
		metrics: metrics,
		checker: checker,
		logger:  logger,
	}
}

// Handler returns the routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	if s.metrics != nil {
		mux.Handle(s.config.MetricsPath, s.metrics)
	}
	health.Register(mux, s.checker, s.config.Version, s.config.Commit, s.config.BuildDate)
	return mux
}

// Addr returns the address the server listens on, once started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Start listens and serves until ctx is cancelled, then shuts down
// gracefully. It returns once the server has stopped.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}

	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.config.Address, err)
	}
	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.isRunning = true
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("Status server started",
			"address", listener.Addr().String(),
			"metrics_path", s.config.MetricsPath,
		)
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		return s.shutdown()
	case err, ok := <-errChan:
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		if ok {
			return err
		}
		return nil
	}
}

func (s *Server) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)

	s.mu.Lock()
	s.isRunning = false
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("Error during server shutdown", "error", err)
		return fmt.Errorf("server shutdown error: %w", err)
	}
	s.logger.Info("Status server stopped")
	return nil
}
