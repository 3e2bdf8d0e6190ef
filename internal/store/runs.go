package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/oncallkb/internal/transcript"
)

// RunRecord is one finished analysis ready to persist.
type RunRecord struct {
	ID            uuid.UUID
	Source        string
	GeneratedAt   time.Time
	SkippedBlocks int
	Report        string
	Threads       []*transcript.Thread
}

// SaveRun writes the run and all its threads in a single transaction.
func (s *Store) SaveRun(ctx context.Context, run RunRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO analysis_runs (id, source, generated_at, thread_count, skipped_blocks, report)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID, run.Source, run.GeneratedAt, len(run.Threads), run.SkippedBlocks, run.Report,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, t := range run.Threads {
		record, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("marshal thread %d: %w", i, err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO analyzed_threads (run_id, position, thread_number, thread_date, channel,
				declared_messages, parsed_messages, first_sender, has_pagerduty, has_sentry,
				services, people_involved, key_terms, record)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			run.ID, i, t.ThreadNumber, t.Date, t.Channel,
			t.MessageCount, t.ParsedCount(), t.FirstSender, t.HasPagerDuty, t.HasSentry,
			nonNil(t.Services), nonNil(t.PeopleInvolved), nonNil(t.KeyTerms), record,
		)
		if err != nil {
			return fmt.Errorf("insert thread %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, source, generated_at, thread_count, skipped_blocks
		FROM analysis_runs
		ORDER BY generated_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRow
	for rows.Next() {
		var r RunRow
		if err := rows.Scan(&r.ID, &r.Source, &r.GeneratedAt, &r.ThreadCount, &r.SkippedBlocks); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// DivergentThreads returns the threads of a run whose declared message count
// disagrees with the number of messages actually parsed.
func (s *Store) DivergentThreads(ctx context.Context, runID uuid.UUID) ([]ThreadRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT position, thread_number, thread_date, declared_messages, parsed_messages
		FROM analyzed_threads
		WHERE run_id = $1 AND declared_messages <> parsed_messages
		ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("query divergent threads: %w", err)
	}
	defer rows.Close()

	var out []ThreadRow
	for rows.Next() {
		var t ThreadRow
		if err := rows.Scan(&t.Position, &t.ThreadNumber, &t.Date, &t.DeclaredMessages, &t.ParsedMessages); err != nil {
			return nil, fmt.Errorf("scan thread: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

type RunRow struct {
	ID            uuid.UUID `json:"id"`
	Source        string    `json:"source"`
	GeneratedAt   time.Time `json:"generated_at"`
	ThreadCount   int       `json:"thread_count"`
	SkippedBlocks int       `json:"skipped_blocks"`
}

type ThreadRow struct {
	Position         int     `json:"position"`
	ThreadNumber     *int    `json:"thread_number"`
	Date             *string `json:"date"`
	DeclaredMessages *int    `json:"declared_messages"`
	ParsedMessages   int     `json:"parsed_messages"`
}
