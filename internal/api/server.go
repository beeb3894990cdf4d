package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"
)

// ServerConfig holds configuration for the HTTP server
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// ShutdownTimeout bounds how long in-flight requests may take to finish
	ShutdownTimeout time.Duration
	// DrainTimeout bounds the shutdown hooks, which run after HTTP has stopped
	DrainTimeout time.Duration
}

// DefaultServerConfig returns the defaults used by the futebolada server
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:            8080,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		DrainTimeout:    2 * time.Minute,
	}
}

type shutdownHook struct {
	name string
	fn   func(context.Context) error
}

// Server serves the API and winds down its dependencies on shutdown.
// Hooks registered with OnShutdown run once no request can still
// enqueue work, so a notification flush sees everything handlers produced.
type Server struct {
	http   *http.Server
	logger *slog.Logger
	config ServerConfig

	mu    sync.Mutex
	addr  string
	hooks []shutdownHook

	shutdownOnce sync.Once
	shutdownErr  error
}

// NewServer creates a new API server
func NewServer(handler http.Handler, config ServerConfig, logger *slog.Logger) *Server {
	addr := net.JoinHostPort(config.Host, fmt.Sprint(config.Port))
	return &Server{
		http: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
		},
		logger: logger,
		config: config,
		addr:   addr,
	}
}

// OnShutdown registers fn to run during Shutdown, in registration order
func (s *Server) OnShutdown(name string, fn func(context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, shutdownHook{name: name, fn: fn})
}

// Start listens on the configured address and serves until Shutdown
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.http.Addr, err)
	}
	return s.Serve(ln)
}

// Serve serves requests on ln until Shutdown
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.mu.Unlock()

	s.logger.Info("http server listening", slog.String("addr", s.Addr()))
	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving http: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones, then runs the
// shutdown hooks. Every hook runs even if an earlier step failed. Calling
// Shutdown again returns the first result.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		s.shutdownErr = s.shutdown(ctx)
	})
	return s.shutdownErr
}

func (s *Server) shutdown(ctx context.Context) error {
	var errs []error

	s.logger.Info("stopping http server")
	httpCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(httpCtx); err != nil {
		errs = append(errs, fmt.Errorf("stopping http: %w", err))
	}

	s.mu.Lock()
	hooks := append([]shutdownHook(nil), s.hooks...)
	s.mu.Unlock()

	drainCtx, drainCancel := context.WithTimeout(ctx, s.config.DrainTimeout)
	defer drainCancel()
	for _, h := range hooks {
		start := time.Now()
		if err := h.fn(drainCtx); err != nil {
			s.logger.Error("shutdown hook failed", slog.String("hook", h.name), slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("%s: %w", h.name, err))
			continue
		}
		s.logger.Info("shutdown hook done", slog.String("hook", h.name), slog.Duration("took", time.Since(start)))
	}

	return errors.Join(errs...)
}

// Addr returns the bound address once serving, else the configured one
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}
