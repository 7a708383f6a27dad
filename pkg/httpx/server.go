// Package httpx provides the HTTP server, JSON response helpers and
// middleware used by the forecaster service.
package httpx

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

// Server is an http.Server bound to its own listener, so the actual
// address is known once Listen returns (useful with ":0").
type Server struct {
	srv    *http.Server
	logger *slog.Logger

	mu sync.Mutex
	ln net.Listener
}

// NewServer creates a server for addr. A nil handler serves
// http.DefaultServeMux.
func NewServer(addr string, handler http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: logger,
	}
}

// Listen opens the listener. It is called by Start when needed.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.srv.Addr, err)
	}
	s.ln = ln
	return nil
}

// Addr returns the bound address after Listen, the configured one before.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.srv.Addr
}

// Start serves until Stop. It returns nil after a graceful stop.
func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", "addr", ln.Addr().String())
	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// Stop shuts the server down, waiting up to timeout for open requests.
func (s *Server) Stop(timeout time.Duration) error {
	s.logger.Info("stopping HTTP server", "timeout", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.logger.Info("HTTP server stopped gracefully")
	return nil
}

// Run serves until ctx is done, then stops with shutdownTimeout. A serve
// failure is returned immediately.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	if err := s.Listen(); err != nil {
		return err
	}

	errc := make(chan error, 1)
	go func() { errc <- s.Start() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	if err := s.Stop(shutdownTimeout); err != nil {
		return err
	}
	return <-errc
}
