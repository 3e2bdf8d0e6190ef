package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MikeSquared-Agency/oncallkb/internal/processor"
)

type Server struct {
	router *chi.Mux
	http   *http.Server
	proc   *processor.Processor
	runs   RunReader
}

// Options configures the API surface. Runs may be nil when no database is configured.
type Options struct {
	Port         int
	APIToken     string
	MaxBodyBytes int64
	Runs         RunReader
}

func NewServer(proc *processor.Processor, opts Options) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(Metrics)

	s := &Server{
		router: router,
		proc:   proc,
		runs:   opts.Runs,
	}
	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/oncallkb/status", s.status)
	router.Handle("/metrics", promhttp.Handler())

	router.Group(func(r chi.Router) {
		r.Use(BearerAuthMiddleware(opts.APIToken))
		r.With(MaxBodySize(opts.MaxBodyBytes)).Post("/api/v1/analyze", s.analyze)
		r.With(MaxBodySize(opts.MaxBodyBytes)).Post("/api/v1/report", s.report)
		r.Get("/api/v1/runs", s.listRuns)
		r.Get("/api/v1/runs/{id}/divergent", s.divergentThreads)
	})

	return s
}

// Start serves until Shutdown is called. A Shutdown that lands before Start
// makes Start return immediately.
func (s *Server) Start() error {
	slog.Info("API server starting", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"agent":  "oncallkb",
		"status": "ready",
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
