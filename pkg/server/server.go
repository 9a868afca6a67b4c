package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"promptstudio/aegis/pkg/api"
	"promptstudio/aegis/pkg/api/middleware"
	"promptstudio/aegis/pkg/config"
	"promptstudio/aegis/pkg/ratelimit"
	"promptstudio/aegis/pkg/service"
	"promptstudio/aegis/pkg/telemetry/health"
	"promptstudio/aegis/pkg/telemetry/tracing"
)

// Server is the HTTP front end of the safety service.
type Server struct {
	config       *config.ServerConfig
	service      *service.Service
	limiter      *ratelimit.Limiter
	httpServer   *http.Server
	listener     net.Listener
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer creates a server for svc using svc's server configuration.
func NewServer(svc *service.Service) *Server {
	return &Server{
		config:       &svc.Config.Server,
		service:      svc,
		limiter:      ratelimit.New(svc.Config.Server.RateLimit),
		shutdownChan: make(chan struct{}),
	}
}

// Start listens on the configured address and blocks until ctx is
// cancelled, a termination signal arrives, Stop is called or serving fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}

	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadTimeout:       s.config.ReadTimeout,
		ReadHeaderTimeout: s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       s.config.IdleTimeout,
		MaxHeaderBytes:    s.config.MaxHeaderBytes,
	}
	s.isRunning = true
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting safety server", "address", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		return err
	case <-s.shutdownChan:
		slog.Info("shutdown requested")
		return s.Shutdown(context.Background())
	}
}

// Stop asks a running Start to shut down and return.
func (s *Server) Stop() {
	select {
	case <-s.shutdownChan:
	default:
		close(s.shutdownChan)
	}
}

// Shutdown gracefully stops the HTTP server, waiting up to the configured
// shutdown timeout for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.RLock()
		running := s.isRunning
		s.mu.RUnlock()
		if !running {
			return
		}

		slog.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		slog.Info("safety server stopped")
	})

	return shutdownErr
}

// Addr returns the address the server listens on, or "" before Start.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the routed handler with the full middleware chain.
func (s *Server) Handler() http.Handler {
	cfg := s.service.Config
	tel := s.service.Telemetry
	mux := http.NewServeMux()

	// Per-route order: metrics, then auth, then throttling, so refused
	// requests are still counted and throttling sees the client name.
	var access []middleware.Middleware
	if s.config.Auth.Enabled {
		access = append(access, middleware.APIKeyAuth(middleware.NewKeySet(s.config.Auth), tel.Metrics))
	}
	if s.config.RateLimit.Enabled {
		access = append(access, middleware.RateLimit(s.limiter, tel.Metrics))
	}

	h := api.NewHandler(s.service, s.service.Engine.Registry)
	h.Register(mux, func(route string, next http.Handler) http.Handler {
		next = middleware.Chain(next, access...)
		if !cfg.Telemetry.Metrics.Enabled {
			return next
		}
		return middleware.Metrics(tel.Metrics, route)(next)
	})

	health.Mount(mux, cfg.Telemetry.Health, tel.Health, tel.Version)

	if cfg.Telemetry.Metrics.Enabled {
		mux.Handle("GET "+cfg.Telemetry.Metrics.Path, tel.Metrics.Handler())
	}

	return middleware.Chain(mux,
		middleware.Recovery,
		func(next http.Handler) http.Handler { return tracing.Middleware(tel.Tracer, next) },
		middleware.RequestID,
		middleware.Logging,
		middleware.CORS(s.config.CORS),
		middleware.BodyLimit(s.config.MaxBodyBytes),
		middleware.Timeout(s.config.RequestTimeout),
	)
}
