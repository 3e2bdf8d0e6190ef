package backfill

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/oncallkb/internal/enrich"
	"github.com/MikeSquared-Agency/oncallkb/internal/pipeline"
	"github.com/MikeSquared-Agency/oncallkb/internal/processor"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingAnalyzer struct {
	proc    *processor.Processor
	sources []string
	failOn  string
}

func (r *recordingAnalyzer) Run(ctx context.Context, origin processor.Origin, source, text string) (*processor.Run, error) {
	r.sources = append(r.sources, source)
	run, err := r.proc.Run(ctx, origin, source, text)
	if source == r.failOn {
		return run, errors.New("save run: connection refused")
	}
	return run, err
}

func newAnalyzer() *recordingAnalyzer {
	return &recordingAnalyzer{
		proc: processor.New(pipeline.New(enrich.DefaultCatalog(), discardLogger()), processor.Deps{}, discardLogger()),
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func setupExports(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a-week1.md"), export(
		thread("1", "2026-02-02", "Priya", "DLQ growing"),
		thread("2", "2026-02-03", "Sam", "timeout on ledge"),
	))
	// Same threads renumbered: a re-export of week 1.
	writeFile(t, filepath.Join(dir, "b-week1-again.md"), export(
		thread("7", "2026-02-02", "Priya", "DLQ growing"),
		thread("8", "2026-02-03", "Sam", "timeout on ledge"),
	))
	writeFile(t, filepath.Join(dir, "nested", "c-week2.md"), export(
		thread("1", "2026-02-09", "Tomasz", "OOM in workers"),
	))
	writeFile(t, filepath.Join(dir, "notes.txt"), "not an export")
	return dir
}

func TestRunner_ProcessesNewExports(t *testing.T) {
	dir := setupExports(t)
	statePath := filepath.Join(t.TempDir(), "state.json")
	an := newAnalyzer()

	sum, err := NewRunner(Config{Dir: dir, StatePath: statePath}, an, discardLogger()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"a-week1.md", "c-week2.md"}, an.sources)
	require.Len(t, sum.Files, 3)
	assert.Equal(t, 3, sum.ThreadsFound)
	assert.Equal(t, 1, sum.DuplicateFiles)
	assert.Equal(t, filepath.Join(dir, "a-week1.md"), sum.Files[1].DuplicateOf)
	assert.NotEmpty(t, sum.Files[0].RunID)

	state, err := LoadState(statePath)
	require.NoError(t, err)
	assert.Len(t, state.FilesProcessed, 3)
	assert.Equal(t, 2, state.RunsCompleted)
	assert.Equal(t, 3, state.ThreadsFound)
}

func TestRunner_ReportsExpandedStatePath(t *testing.T) {
	dir := setupExports(t)
	home := t.TempDir()
	t.Setenv("HOME", home)

	sum, err := NewRunner(Config{Dir: dir, StatePath: "~/.oncallkb/state.json"}, newAnalyzer(), discardLogger()).Run(context.Background())
	require.NoError(t, err)

	want := filepath.Join(home, ".oncallkb", "state.json")
	assert.Equal(t, want, sum.StatePath)
	_, err = os.Stat(want)
	assert.NoError(t, err)
}

func TestRunner_Resumes(t *testing.T) {
	dir := setupExports(t)
	statePath := filepath.Join(t.TempDir(), "state.json")

	_, err := NewRunner(Config{Dir: dir, StatePath: statePath}, newAnalyzer(), discardLogger()).Run(context.Background())
	require.NoError(t, err)

	writeFile(t, filepath.Join(dir, "d-week3.md"), export(thread("1", "2026-02-16", "Priya", "stuck import")))

	an := newAnalyzer()
	sum, err := NewRunner(Config{Dir: dir, StatePath: statePath}, an, discardLogger()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"d-week3.md"}, an.sources)
	assert.Equal(t, 3, sum.AlreadyDone)
	assert.Equal(t, 1, sum.ThreadsFound)
}

func TestRunner_DryRunLeavesNoState(t *testing.T) {
	dir := setupExports(t)
	statePath := filepath.Join(t.TempDir(), "state.json")

	sum, err := NewRunner(Config{Dir: dir, StatePath: statePath, DryRun: true}, newAnalyzer(), discardLogger()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, sum.ThreadsFound)

	_, err = os.Stat(statePath)
	assert.True(t, os.IsNotExist(err), "dry run must not write state")
}

func TestRunner_ErrorsAreRetried(t *testing.T) {
	dir := setupExports(t)
	statePath := filepath.Join(t.TempDir(), "state.json")
	an := newAnalyzer()
	an.failOn = "c-week2.md"

	sum, err := NewRunner(Config{Dir: dir, StatePath: statePath}, an, discardLogger()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Errors)

	state, err := LoadState(statePath)
	require.NoError(t, err)
	assert.False(t, state.IsProcessed(filepath.Join(dir, "nested", "c-week2.md")))
	require.Len(t, state.Errors, 1)
	assert.Contains(t, state.Errors[0], "connection refused")
}

func TestRunner_SinceFiltersOldFiles(t *testing.T) {
	dir := setupExports(t)
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "a-week1.md"), old, old))

	an := newAnalyzer()
	sum, err := NewRunner(Config{
		Dir:       dir,
		StatePath: filepath.Join(t.TempDir(), "state.json"),
		Since:     time.Now().Add(-24 * time.Hour),
	}, an, discardLogger()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, sum.TooOld)
	assert.Equal(t, []string{"b-week1-again.md", "c-week2.md"}, an.sources)
}

func TestRunner_CustomPattern(t *testing.T) {
	dir := setupExports(t)
	an := newAnalyzer()

	_, err := NewRunner(Config{Dir: dir, Pattern: "*.txt", StatePath: filepath.Join(t.TempDir(), "s.json")}, an, discardLogger()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"notes.txt"}, an.sources)
}

func TestRunner_MissingDir(t *testing.T) {
	_, err := NewRunner(Config{Dir: filepath.Join(t.TempDir(), "nope"), StatePath: filepath.Join(t.TempDir(), "s.json")}, newAnalyzer(), discardLogger()).Run(context.Background())
	assert.Error(t, err)
}

func TestFormatSummary(t *testing.T) {
	out := FormatSummary(&Summary{
		Files: []FileResult{
			{Path: "x/a.md", Threads: 2, Skipped: 1},
			{Path: "x/b.md", DuplicateOf: "x/a.md"},
			{Path: "x/c.md", Error: "boom"},
		},
		ThreadsFound:   2,
		DuplicateFiles: 1,
		Errors:         1,
	})

	assert.Contains(t, out, "2 threads, 1 skipped blocks")
	assert.Contains(t, out, "duplicate of a.md")
	assert.Contains(t, out, "error: boom")
	assert.Contains(t, out, "Files analyzed: 1\n")
	assert.True(t, strings.HasSuffix(out, "Errors: 1\n"))
}
