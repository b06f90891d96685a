// Package handler implements the status server of the alert binaries:
// a health endpoint that reports the last cycle and the Prometheus metrics.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fishing-exam-alert/backend/internal/middleware"
	"github.com/fishing-exam-alert/backend/internal/service"
)

// StatusReporter exposes the outcome of the most recent cycle.
// Defining the interface here lets handler tests inject a fixed snapshot.
type StatusReporter interface {
	Snapshot() service.StatusSnapshot
}

// Server serves the status endpoints.
type Server struct {
	status StatusReporter
}

// NewServer constructs the Server with all its dependencies.
func NewServer(status StatusReporter) *Server {
	return &Server{status: status}
}

// NewRouter returns the chi router for the status server.
// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer.
func NewRouter(s *Server, gatherer prometheus.Gatherer, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger, "/metrics"))
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", s.GetHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}

// ListenAndServe runs an http.Server on addr until ctx is cancelled, then
// gives in-flight requests up to 15 seconds to complete.
func ListenAndServe(ctx context.Context, addr string, h http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      h,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("status server starting", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("status server stopped")
	return nil
}
