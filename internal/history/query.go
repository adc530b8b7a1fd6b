package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const defaultRecentLimit = 20

// RecentRuns returns the newest runs, most recent first. A non-positive limit
// falls back to a small default.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, verb, root, started_at, finished_at, assets_total, assets_failed, succeeded
         FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun fetches a single run by ID. Unique ID prefixes of at least four
// characters are accepted.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, verb, root, started_at, finished_at, assets_total, assets_failed, succeeded
         FROM runs WHERE id = ?`,
		id,
	)
	run, err := scanRun(row)
	if err == nil {
		return &run, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if len(id) < 4 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, verb, root, started_at, finished_at, assets_total, assets_failed, succeeded
         FROM runs WHERE id LIKE ? || '%' LIMIT 2`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("query run prefix: %w", err)
	}
	defer rows.Close()

	var matches []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("run id prefix %q is ambiguous", id)
	}
}

// RunOutcomes returns a run's per-asset outcomes in their recorded order.
func (s *Store) RunOutcomes(ctx context.Context, runID string) ([]Outcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT asset, name, dir, kind, detail, duration_ms
         FROM run_outcomes WHERE run_id = ? ORDER BY position`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query run outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []Outcome
	for rows.Next() {
		var outcome Outcome
		var durationMS int64
		if err := rows.Scan(
			&outcome.Asset,
			&outcome.Name,
			&outcome.Dir,
			&outcome.Kind,
			&outcome.Detail,
			&durationMS,
		); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		outcome.Duration = time.Duration(durationMS) * time.Millisecond
		outcomes = append(outcomes, outcome)
	}
	return outcomes, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var run Run
	var started, finished string
	if err := row.Scan(
		&run.ID,
		&run.Verb,
		&run.Root,
		&started,
		&finished,
		&run.Total,
		&run.Failed,
		&run.Succeeded,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	var err error
	if run.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return Run{}, fmt.Errorf("parse started_at: %w", err)
	}
	if run.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
		return Run{}, fmt.Errorf("parse finished_at: %w", err)
	}
	return run, nil
}
