package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/oncallkb/internal/store"
)

const maxRunsLimit = 200

// RunReader reads persisted analysis runs.
type RunReader interface {
	ListRuns(ctx context.Context, limit int) ([]store.RunRow, error)
	DivergentThreads(ctx context.Context, runID uuid.UUID) ([]store.ThreadRow, error)
}

// listRuns handles GET /api/v1/runs
func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeError(w, http.StatusServiceUnavailable, "no database configured")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, maxRunsLimit)
	}

	runs, err := s.runs.ListRuns(r.Context(), limit)
	if err != nil {
		slog.Error("list runs failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []store.RunRow{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}

// divergentThreads handles GET /api/v1/runs/{id}/divergent
func (s *Server) divergentThreads(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeError(w, http.StatusServiceUnavailable, "no database configured")
		return
	}

	runID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid run id")
		return
	}

	threads, err := s.runs.DivergentThreads(r.Context(), runID)
	if err != nil {
		slog.Error("divergent threads query failed", "run_id", runID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load threads")
		return
	}
	if threads == nil {
		threads = []store.ThreadRow{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"run_id": runID, "threads": threads, "count": len(threads)})
}
