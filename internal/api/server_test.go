package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/oncallkb/internal/enrich"
	"github.com/MikeSquared-Agency/oncallkb/internal/pipeline"
	"github.com/MikeSquared-Agency/oncallkb/internal/processor"
	"github.com/MikeSquared-Agency/oncallkb/internal/store"
)

const sampleExport = `# Thread 7
**Channel:** #bor-write-alerts
**Date:** 2026-02-02
**Messages:** 1

**Priya Raman** — _9:04 AM_
[ledge] DLQ growing, timeout on consumer`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(opts Options) *Server {
	proc := processor.New(pipeline.New(enrich.DefaultCatalog(), discardLogger()), processor.Deps{}, discardLogger())
	if opts.Port == 0 {
		opts.Port = 8760
	}
	return NewServer(proc, opts)
}

func do(srv *Server, method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(Options{})

	w := do(srv, "GET", "/health", "", nil)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv := newTestServer(Options{})

	w := do(srv, "GET", "/api/v1/oncallkb/status", "", nil)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["agent"] != "oncallkb" {
		t.Errorf("expected agent oncallkb, got %q", body["agent"])
	}
	if body["status"] != "ready" {
		t.Errorf("expected status ready, got %q", body["status"])
	}
}

func TestNotFoundEndpoint(t *testing.T) {
	srv := newTestServer(Options{})

	w := do(srv, "GET", "/nonexistent", "", nil)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(Options{})

	do(srv, "GET", "/health", "", nil)
	w := do(srv, "GET", "/metrics", "", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "oncallkb_http_requests_total") {
		t.Error("expected request counter in metrics output")
	}
}

func TestAnalyzeEndpoint(t *testing.T) {
	srv := newTestServer(Options{})

	w := do(srv, "POST", "/api/v1/analyze?source=export.md", sampleExport, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		RunID         string `json:"run_id"`
		Source        string `json:"source"`
		ThreadCount   int    `json:"thread_count"`
		SkippedBlocks int    `json:"skipped_blocks"`
		Threads       []struct {
			ThreadNumber int      `json:"thread_number"`
			Services     []string `json:"services"`
			KeyTerms     []string `json:"key_terms"`
		} `json:"threads"`
		Summary map[string]any `json:"summary"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if _, err := uuid.Parse(body.RunID); err != nil {
		t.Errorf("expected uuid run_id, got %q", body.RunID)
	}
	if body.Source != "export.md" {
		t.Errorf("expected source export.md, got %q", body.Source)
	}
	if body.ThreadCount != 1 || len(body.Threads) != 1 {
		t.Fatalf("expected 1 thread, got %d", body.ThreadCount)
	}
	if body.Threads[0].ThreadNumber != 7 {
		t.Errorf("expected thread 7, got %d", body.Threads[0].ThreadNumber)
	}
	if len(body.Threads[0].Services) != 1 || body.Threads[0].Services[0] != "ledge" {
		t.Errorf("expected services [ledge], got %v", body.Threads[0].Services)
	}
	if _, ok := body.Summary["overview"]; !ok {
		t.Error("expected summary overview")
	}
}

func TestReportEndpoint(t *testing.T) {
	srv := newTestServer(Options{})

	w := do(srv, "POST", "/api/v1/report?source=export.md", sampleExport, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/markdown; charset=utf-8" {
		t.Errorf("unexpected content type %q", ct)
	}
	if !strings.HasPrefix(w.Body.String(), "# Slack Thread Analysis Summary") {
		t.Errorf("expected markdown report, got %q", w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "from `export.md`") {
		t.Error("expected source in report header")
	}
}

func TestAuth(t *testing.T) {
	srv := newTestServer(Options{APIToken: "kb-secret"})

	cases := []struct {
		name   string
		header map[string]string
		want   int
	}{
		{"missing", nil, http.StatusUnauthorized},
		{"wrong", map[string]string{"Authorization": "Bearer nope"}, http.StatusUnauthorized},
		{"no scheme", map[string]string{"Authorization": "kb-secret"}, http.StatusUnauthorized},
		{"valid", map[string]string{"Authorization": "Bearer kb-secret"}, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(srv, "POST", "/api/v1/analyze", sampleExport, tc.header)
			if w.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, w.Code)
			}
			if tc.want == http.StatusUnauthorized {
				var body map[string]string
				json.NewDecoder(w.Body).Decode(&body)
				if body["error"] != "unauthorized" {
					t.Errorf("expected unauthorized error body, got %v", body)
				}
			}
		})
	}

	// Health stays open.
	if w := do(srv, "GET", "/health", "", nil); w.Code != http.StatusOK {
		t.Errorf("expected open health endpoint, got %d", w.Code)
	}
}

func TestBodyTooLarge(t *testing.T) {
	srv := newTestServer(Options{MaxBodyBytes: 16})

	w := do(srv, "POST", "/api/v1/analyze", sampleExport, nil)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", w.Code)
	}
}

func TestBodyTooLarge_Streamed(t *testing.T) {
	srv := newTestServer(Options{MaxBodyBytes: 16})

	req := httptest.NewRequest("POST", "/api/v1/report", io.NopCloser(strings.NewReader(sampleExport)))
	req.ContentLength = -1
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", w.Code)
	}
}

type fakeRuns struct {
	runs      []store.RunRow
	divergent []store.ThreadRow
	err       error
	limit     int
}

func (f *fakeRuns) ListRuns(_ context.Context, limit int) ([]store.RunRow, error) {
	f.limit = limit
	return f.runs, f.err
}

func (f *fakeRuns) DivergentThreads(_ context.Context, _ uuid.UUID) ([]store.ThreadRow, error) {
	return f.divergent, f.err
}

func TestRunsEndpoints_NoDatabase(t *testing.T) {
	srv := newTestServer(Options{})

	if w := do(srv, "GET", "/api/v1/runs", "", nil); w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
}

func TestListRuns(t *testing.T) {
	runs := &fakeRuns{runs: []store.RunRow{{ID: uuid.New(), Source: "export.md", ThreadCount: 4}}}
	srv := newTestServer(Options{Runs: runs})

	w := do(srv, "GET", "/api/v1/runs?limit=500", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if runs.limit != maxRunsLimit {
		t.Errorf("expected limit clamped to %d, got %d", maxRunsLimit, runs.limit)
	}

	var body struct {
		Count int `json:"count"`
	}
	json.NewDecoder(w.Body).Decode(&body)
	if body.Count != 1 {
		t.Errorf("expected 1 run, got %d", body.Count)
	}

	if w := do(srv, "GET", "/api/v1/runs?limit=abc", "", nil); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad limit, got %d", w.Code)
	}
}

func TestDivergentThreads(t *testing.T) {
	declared := 5
	runs := &fakeRuns{divergent: []store.ThreadRow{{Position: 2, DeclaredMessages: &declared, ParsedMessages: 3}}}
	srv := newTestServer(Options{Runs: runs})

	w := do(srv, "GET", "/api/v1/runs/"+uuid.NewString()+"/divergent", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"parsed_messages":3`) {
		t.Errorf("unexpected body %s", w.Body.String())
	}

	if w := do(srv, "GET", "/api/v1/runs/not-a-uuid/divergent", "", nil); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad id, got %d", w.Code)
	}

	runs.err = errors.New("db down")
	if w := do(srv, "GET", "/api/v1/runs/"+uuid.NewString()+"/divergent", "", nil); w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestStartShutdown(t *testing.T) {
	port := freePort(t)
	srv := newTestServer(Options{Port: port})

	done := make(chan error, 1)
	go func() { done <- srv.Start() }()

	url := fmt.Sprintf("http://127.0.0.1:%d/health", port)
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never came up: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean stop, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Shutdown")
	}

	if resp, err := http.Get(url); err == nil {
		resp.Body.Close()
		t.Error("expected listener to be closed after shutdown")
	}
}

func TestShutdownBeforeStart(t *testing.T) {
	srv := newTestServer(Options{Port: freePort(t)})

	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- srv.Start() }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean stop, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start kept serving after an earlier Shutdown")
	}
}
