package observability

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server provides HTTP endpoints for health checks, readiness probes,
// and Prometheus metrics:
//
//   - GET /healthz: 200 while the process is running.
//   - GET /readyz: 200 once SetReady(true) has been called, 503 before.
//   - GET /metrics: Prometheus text exposition, Go runtime metrics included.
//
// snowctl starts this server only when --metrics-addr is set, for long
// operations (bulk creates) that are worth scraping.
type Server struct {
	addr   string
	ready  atomic.Bool
	logger *slog.Logger
	srv    *http.Server
}

// NewServer creates a new observability HTTP server.
func NewServer(addr string, logger *slog.Logger) *Server {
	s := &Server{
		addr:   addr,
		logger: logger.With("component", "observability"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.Handle("/metrics", promhttp.Handler())

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start begins listening for HTTP requests. Blocks until the context is
// cancelled, then gracefully shuts down the server.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("observability server starting", "addr", s.addr)

	go func() {
		<-ctx.Done()
		s.logger.Info("shutting down observability server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
	}()

	if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("observability server: %w", err)
	}
	return nil
}

// SetReady marks the server as ready (or not ready) for readiness probes.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
	s.logger.Info("readiness state changed", "ready", ready)
}

// handleHealth responds with 200 OK while the process is alive.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, `{"status":"healthy"}`)
}

// handleReady responds with 200 if ready, 503 if not yet ready.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.ready.Load() {
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, `{"status":"ready"}`)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = fmt.Fprintf(w, `{"status":"not_ready"}`)
	}
}
