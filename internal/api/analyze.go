package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/MikeSquared-Agency/oncallkb/internal/analysis"
	"github.com/MikeSquared-Agency/oncallkb/internal/processor"
	"github.com/MikeSquared-Agency/oncallkb/internal/transcript"
)

type analyzeResponse struct {
	RunID         string               `json:"run_id"`
	Source        string               `json:"source"`
	ThreadCount   int                  `json:"thread_count"`
	SkippedBlocks int                  `json:"skipped_blocks"`
	Threads       []*transcript.Thread `json:"threads"`
	Summary       analysis.Summary     `json:"summary"`
}

// analyze handles POST /api/v1/analyze
func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	run, ok := s.runTranscript(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, analyzeResponse{
		RunID:         run.ID.String(),
		Source:        run.Source,
		ThreadCount:   len(run.Result.Threads),
		SkippedBlocks: len(run.Result.Skipped),
		Threads:       run.Result.Threads,
		Summary:       run.Result.Summary,
	})
}

// report handles POST /api/v1/report
func (s *Server) report(w http.ResponseWriter, r *http.Request) {
	run, ok := s.runTranscript(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("X-Run-ID", run.ID.String())
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, run.Report)
}

func (s *Server) runTranscript(w http.ResponseWriter, r *http.Request) (*processor.Run, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "failed to read body")
		return nil, false
	}

	run, err := s.proc.Run(r.Context(), processor.OriginHTTP, r.URL.Query().Get("source"), string(body))
	if err != nil {
		slog.Error("analysis run failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to persist analysis run")
		return nil, false
	}
	return run, true
}
