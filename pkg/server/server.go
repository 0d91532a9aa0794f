package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"mercator-hq/relay/pkg/config"
	"mercator-hq/relay/pkg/proxy/middleware"
)

// Routes holds the handlers the server mounts. Nil handlers are not
// registered.
type Routes struct {
	// Chat serves POST /v1/chat/completions.
	Chat http.Handler

	// Cache serves DELETE /v1/cache/{fingerprint}.
	Cache http.Handler

	// Liveness serves GET /health.
	Liveness http.Handler

	// Readiness serves GET /ready.
	Readiness http.Handler

	// Providers serves GET /health/providers.
	Providers http.Handler

	// Version serves GET /version.
	Version http.Handler

	// Metrics serves GET on MetricsPath.
	Metrics     http.Handler
	MetricsPath string
}

// Server is the HTTP server for relay traffic.
type Server struct {
	config       config.ServerConfig
	routes       Routes
	httpServer   *http.Server
	listener     net.Listener
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	stopOnce     sync.Once
	mu           sync.RWMutex
	isRunning    bool
	logger       *slog.Logger
}

// NewServer creates a server for routes. A nil logger means slog.Default().
func NewServer(cfg config.ServerConfig, routes Routes, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config:       cfg,
		routes:       routes,
		shutdownChan: make(chan struct{}),
		logger:       logger,
	}
}

// Start listens on the configured address and serves until ctx is done,
// Stop is called or the listener fails. It then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		_ = ln.Close()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:        s.Handler(),
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
		BaseContext:    func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	httpServer := s.httpServer
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.InfoContext(ctx, "starting relay server", "address", ln.Addr().String())
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		return err
	case <-s.shutdownChan:
		s.logger.Info("shutdown requested")
		return s.Shutdown(context.Background())
	}
}

// Stop asks a running Start or Serve to shut down.
func (s *Server) Stop() {
	s.stopOnce.Do(func() { close(s.shutdownChan) })
}

// Shutdown gracefully shuts down the server. In-flight requests get up to
// the configured shutdown timeout to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.RLock()
		running, httpServer := s.isRunning, s.httpServer
		s.mu.RUnlock()
		if !running {
			return
		}

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx := ctx
		if s.config.ShutdownTimeout > 0 {
			var cancel context.CancelFunc
			shutdownCtx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
			defer cancel()
		}

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("relay server stopped")
	})

	return shutdownErr
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mount := func(pattern string, h http.Handler) {
		if h != nil {
			mux.Handle(pattern, h)
		}
	}
	mount("POST /v1/chat/completions", s.routes.Chat)
	mount("DELETE /v1/cache/{fingerprint}", s.routes.Cache)
	mount("GET /health", s.routes.Liveness)
	mount("GET /ready", s.routes.Readiness)
	mount("GET /health/providers", s.routes.Providers)
	mount("GET /version", s.routes.Version)
	if s.routes.MetricsPath != "" {
		mount("GET "+s.routes.MetricsPath, s.routes.Metrics)
	}

	return middleware.Chain(mux,
		middleware.Recover(s.logger),
		middleware.RequestID,
		middleware.AccessLog(s.logger),
	)
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Addr returns the listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}
