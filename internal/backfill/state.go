package backfill

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const DefaultStatePath = "~/.oncallkb/backfill-state.json"

// State tracks progress for resumable backfill runs.
type State struct {
	StartedAt       time.Time           `json:"started_at"`
	LastProcessedAt time.Time           `json:"last_processed_at"`
	FilesProcessed  []string            `json:"files_processed"`
	Fingerprints    map[string][]string `json:"fingerprints"` // file path → thread fingerprints
	RunsCompleted   int                 `json:"runs_completed"`
	ThreadsFound    int                 `json:"threads_found"`
	Errors          []string            `json:"errors"`

	path string // not serialized
}

// LoadState loads the backfill state from path, or creates a new one.
func LoadState(path string) (*State, error) {
	if path == "" {
		path = DefaultStatePath
	}
	p := expandHome(path)

	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return &State{
				StartedAt:    time.Now().UTC(),
				Fingerprints: make(map[string][]string),
				path:         p,
			}, nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	if s.Fingerprints == nil {
		s.Fingerprints = make(map[string][]string)
	}
	s.path = p
	return &s, nil
}

// Path returns where the state is saved.
func (s *State) Path() string {
	return s.path
}

// Save persists the state to disk.
func (s *State) Save() error {
	s.LastProcessedAt = time.Now().UTC()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	return os.WriteFile(s.path, data, 0o644)
}

// IsProcessed returns true if the given file has already been processed.
func (s *State) IsProcessed(path string) bool {
	for _, f := range s.FilesProcessed {
		if f == path {
			return true
		}
	}
	return false
}

// MarkProcessed records a file as processed along with its thread fingerprints.
func (s *State) MarkProcessed(path string, fingerprints []string) {
	s.FilesProcessed = append(s.FilesProcessed, path)
	if s.Fingerprints == nil {
		s.Fingerprints = make(map[string][]string)
	}
	s.Fingerprints[path] = fingerprints
}

// AddError records a processing error.
func (s *State) AddError(msg string) {
	s.Errors = append(s.Errors, msg)
}

func expandHome(path string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
