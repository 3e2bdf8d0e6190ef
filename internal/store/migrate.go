package store

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS analysis_runs (
		id             UUID PRIMARY KEY,
		source         TEXT NOT NULL,
		generated_at   TIMESTAMPTZ NOT NULL,
		thread_count   INT NOT NULL,
		skipped_blocks INT NOT NULL,
		report         TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS analyzed_threads (
		run_id            UUID NOT NULL REFERENCES analysis_runs(id) ON DELETE CASCADE,
		position          INT NOT NULL,
		thread_number     INT,
		thread_date       TEXT,
		channel           TEXT,
		declared_messages INT,
		parsed_messages   INT NOT NULL,
		first_sender      TEXT,
		has_pagerduty     BOOLEAN NOT NULL,
		has_sentry        BOOLEAN NOT NULL,
		services          TEXT[] NOT NULL,
		people_involved   TEXT[] NOT NULL,
		key_terms         TEXT[] NOT NULL,
		record            JSONB NOT NULL,
		PRIMARY KEY (run_id, position)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_analysis_runs_generated_at ON analysis_runs (generated_at DESC)`,
}

// Migrate creates the tables if they don't exist. It is safe to run on every start.
func (s *Store) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i, err)
		}
	}
	return nil
}
