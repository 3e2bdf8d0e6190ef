package backfill

import "time"

// Config holds the backfill command configuration.
type Config struct {
	Dir       string
	Pattern   string    // glob matched against file names, default "*.md"
	Since     time.Time // skip files last modified before this; zero keeps all
	DryRun    bool      // analyze and report, but never record state
	StatePath string
}

// FileResult describes what happened to one export file.
type FileResult struct {
	Path        string `json:"path"`
	RunID       string `json:"run_id,omitempty"`
	Threads     int    `json:"threads"`
	Skipped     int    `json:"skipped_blocks"`
	DuplicateOf string `json:"duplicate_of,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Summary is the outcome of a backfill pass.
type Summary struct {
	StatePath      string // state file in use, with ~ expanded
	Files          []FileResult
	AlreadyDone    int
	TooOld         int
	ThreadsFound   int
	DuplicateFiles int
	Errors         int
}
