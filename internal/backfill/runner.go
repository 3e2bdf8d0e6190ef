package backfill

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/MikeSquared-Agency/oncallkb/internal/processor"
)

const defaultPattern = "*.md"

// Analyzer runs one transcript through the pipeline.
type Analyzer interface {
	Run(ctx context.Context, origin processor.Origin, source, text string) (*processor.Run, error)
}

// Runner walks a directory of exports and analyzes each new one.
type Runner struct {
	cfg    Config
	proc   Analyzer
	logger *slog.Logger
}

// NewRunner creates a backfill runner.
func NewRunner(cfg Config, proc Analyzer, logger *slog.Logger) *Runner {
	if cfg.Pattern == "" {
		cfg.Pattern = defaultPattern
	}
	return &Runner{cfg: cfg, proc: proc, logger: logger}
}

// Run executes the backfill. State is saved after every file unless DryRun is set.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	state, err := LoadState(r.cfg.StatePath)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}

	files, err := r.discoverFiles()
	if err != nil {
		return nil, fmt.Errorf("discover files: %w", err)
	}
	r.logger.Info("files discovered", "dir", r.cfg.Dir, "files", len(files))

	sum := &Summary{StatePath: state.Path()}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		if state.IsProcessed(path) {
			sum.AlreadyDone++
			continue
		}
		if !r.cfg.Since.IsZero() {
			info, err := os.Stat(path)
			if err == nil && info.ModTime().Before(r.cfg.Since) {
				sum.TooOld++
				continue
			}
		}

		res := r.processFile(ctx, state, path)
		sum.Files = append(sum.Files, res)
		switch {
		case res.Error != "":
			sum.Errors++
			state.AddError(fmt.Sprintf("%s: %s", path, res.Error))
		case res.DuplicateOf != "":
			sum.DuplicateFiles++
		default:
			sum.ThreadsFound += res.Threads
			state.RunsCompleted++
			state.ThreadsFound += res.Threads
		}

		if !r.cfg.DryRun {
			if err := state.Save(); err != nil {
				return sum, fmt.Errorf("save state: %w", err)
			}
		}
	}

	r.logger.Info("backfill complete",
		"files", len(sum.Files),
		"already_done", sum.AlreadyDone,
		"duplicates", sum.DuplicateFiles,
		"threads", sum.ThreadsFound,
		"errors", sum.Errors,
		"dry_run", r.cfg.DryRun,
	)
	return sum, nil
}

func (r *Runner) processFile(ctx context.Context, state *State, path string) FileResult {
	res := FileResult{Path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		r.logger.Warn("failed to read export", "path", path, "error", err)
		res.Error = err.Error()
		return res
	}
	text := string(data)

	fps := Fingerprints(text)
	if dup, ok := FindDuplicate(fps, state.Fingerprints); ok {
		r.logger.Info("skipping duplicate export", "path", path, "duplicate_of", dup)
		res.DuplicateOf = dup
		state.MarkProcessed(path, fps)
		return res
	}

	run, err := r.proc.Run(ctx, processor.OriginBackfill, filepath.Base(path), text)
	if err != nil {
		r.logger.Warn("export analysis failed", "path", path, "error", err)
		res.Error = err.Error()
		return res
	}

	res.RunID = run.ID.String()
	res.Threads = len(run.Result.Threads)
	res.Skipped = len(run.Result.Skipped)
	state.MarkProcessed(path, fps)
	return res
}

func (r *Runner) discoverFiles() ([]string, error) {
	var files []string
	err := filepath.WalkDir(r.cfg.Dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ok, err := filepath.Match(r.cfg.Pattern, d.Name())
		if err != nil {
			return err
		}
		if ok {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// FormatSummary renders a plain-text table of the backfill outcome.
func FormatSummary(sum *Summary) string {
	var sb strings.Builder
	for _, f := range sum.Files {
		name := filepath.Base(f.Path)
		switch {
		case f.Error != "":
			fmt.Fprintf(&sb, "  %-40s  error: %s\n", name, f.Error)
		case f.DuplicateOf != "":
			fmt.Fprintf(&sb, "  %-40s  duplicate of %s\n", name, filepath.Base(f.DuplicateOf))
		default:
			fmt.Fprintf(&sb, "  %-40s  %d threads, %d skipped blocks\n", name, f.Threads, f.Skipped)
		}
	}
	fmt.Fprintf(&sb, "\nFiles analyzed: %d\n", len(sum.Files)-sum.DuplicateFiles-sum.Errors)
	fmt.Fprintf(&sb, "Threads found: %d\n", sum.ThreadsFound)
	fmt.Fprintf(&sb, "Duplicates skipped: %d\n", sum.DuplicateFiles)
	fmt.Fprintf(&sb, "Already processed: %d\n", sum.AlreadyDone)
	if sum.TooOld > 0 {
		fmt.Fprintf(&sb, "Older than --since: %d\n", sum.TooOld)
	}
	fmt.Fprintf(&sb, "Errors: %d\n", sum.Errors)
	return sb.String()
}
