package history

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Run is one recorded batch invocation.
type Run struct {
	ID         string
	Verb       string
	Root       string
	StartedAt  time.Time
	FinishedAt time.Time
	Total      int
	Failed     int
	Succeeded  bool
}

// Outcome is one asset's result within a run. Kind carries the batch
// classification verbatim; the ledger does not interpret it.
type Outcome struct {
	Asset    string
	Name     string
	Dir      string
	Kind     string
	Detail   string
	Duration time.Duration
}

// RecordRun stores a finished run and its per-asset outcomes in one
// transaction.
func (s *Store) RecordRun(ctx context.Context, run Run, outcomes []Outcome) error {
	if run.ID == "" {
		return errors.New("run id required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin run tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (
            id, verb, root, started_at, finished_at,
            assets_total, assets_failed, succeeded
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.Verb,
		run.Root,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.Total,
		run.Failed,
		run.Succeeded,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for position, outcome := range outcomes {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO run_outcomes (
                run_id, position, asset, name, dir, kind, detail, duration_ms
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID,
			position,
			outcome.Asset,
			outcome.Name,
			outcome.Dir,
			outcome.Kind,
			outcome.Detail,
			outcome.Duration.Milliseconds(),
		)
		if err != nil {
			return fmt.Errorf("insert outcome %d: %w", position, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// Prune removes the oldest runs beyond keep; their outcomes cascade. It
// returns the number of runs removed.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM runs WHERE id NOT IN (
            SELECT id FROM runs ORDER BY started_at DESC, id DESC LIMIT ?
        )`,
		keep,
	)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune rows affected: %w", err)
	}
	return removed, nil
}

// Clear removes every recorded run and, through the cascade, its outcomes.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs`)
	if err != nil {
		return 0, fmt.Errorf("clear runs: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear rows affected: %w", err)
	}
	return removed, nil
}
