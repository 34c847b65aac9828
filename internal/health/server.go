// Package health serves the liveness endpoint hosting platforms probe,
// plus the Prometheus metrics exposition.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"calcbot/internal/metrics"
)

const livenessBody = "calcbot is running and healthy!"

// Server is a plain HTTP server with / and /healthz liveness endpoints
// and /metrics.
type Server struct {
	host   string
	port   int
	logger *slog.Logger
	srv    *http.Server
}

type Config struct {
	Host   string
	Port   int
	Logger *slog.Logger
}

func NewServer(cfg Config) *Server {
	if cfg.Port == 0 {
		cfg.Port = 8000
	}
	return &Server{
		host:   cfg.Host,
		port:   cfg.Port,
		logger: cfg.Logger,
	}
}

// Start runs the server until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.host, s.port),
		Handler:           s.handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("health server starting", "addr", s.srv.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleLiveness)
	mux.HandleFunc("/healthz", s.handleLiveness)
	mux.HandleFunc("GET /metrics", metrics.Collector.Handler())
	return mux
}

// handleLiveness answers GET and HEAD probes with 200. Uptime monitors
// commonly use HEAD.
func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		fmt.Fprint(w, livenessBody)
	}
}
