package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"baker/internal/logging"
	"baker/internal/workflow"
)

// Run is one recorded workflow run.
type Run struct {
	RunID       string
	Title       string
	Destination string
	State       workflow.State
	Progress    int
	Error       string
	StartedAt   time.Time
	FinishedAt  *time.Time
}

const timeFormat = time.RFC3339Nano

// RecordTransition upserts the run row for a transition. Transitions that
// carry no run identifier (configuration edits, resets) are skipped.
func (s *Store) RecordTransition(ctx context.Context, tr workflow.Transition) error {
	if tr.RunID == "" {
		return nil
	}

	destination := tr.Context.ProjectFolder
	if destination == "" {
		destination = tr.Context.DestinationRoot
	}

	now := time.Now().UTC().Format(timeFormat)
	var finishedAt any
	if tr.To.Terminal() {
		finishedAt = now
	}

	return s.execWithRetry(ctx, `
		INSERT INTO runs (run_id, title, destination, state, progress, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			title       = excluded.title,
			destination = excluded.destination,
			state       = excluded.state,
			progress    = excluded.progress,
			error       = excluded.error,
			finished_at = excluded.finished_at`,
		tr.RunID, tr.Context.Title, destination, string(tr.To),
		tr.Context.CopyProgress, tr.Context.LastError, now, finishedAt,
	)
}

// Observer adapts the store into a machine transition observer. Failures
// are logged and never disturb the workflow.
func (s *Store) Observer(logger *slog.Logger) workflow.TransitionObserver {
	if logger == nil {
		logger = logging.NewNop()
	}
	return func(tr workflow.Transition) {
		if err := s.RecordTransition(context.Background(), tr); err != nil {
			logger.Warn("could not record run transition",
				logging.String(logging.FieldRunID, tr.RunID),
				logging.Error(err),
			)
		}
	}
}

// ListRecent returns up to limit runs, most recently started first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, title, destination, state, progress, error, started_at, finished_at
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Get returns one run by identifier, or sql.ErrNoRows wrapped when absent.
func (s *Store) Get(ctx context.Context, runID string) (Run, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, title, destination, state, progress, error, started_at, finished_at
		FROM runs
		WHERE run_id = ?`, runID)
	run, err := scanRun(row)
	if err != nil {
		return Run{}, fmt.Errorf("load run %s: %w", runID, err)
	}
	return run, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run        Run
		state      string
		startedAt  string
		finishedAt sql.NullString
	)
	if err := row.Scan(&run.RunID, &run.Title, &run.Destination, &state,
		&run.Progress, &run.Error, &startedAt, &finishedAt); err != nil {
		return Run{}, err
	}
	run.State = workflow.State(state)

	started, err := time.Parse(timeFormat, startedAt)
	if err != nil {
		return Run{}, fmt.Errorf("parse started_at: %w", err)
	}
	run.StartedAt = started

	if finishedAt.Valid {
		finished, err := time.Parse(timeFormat, finishedAt.String)
		if err != nil {
			return Run{}, fmt.Errorf("parse finished_at: %w", err)
		}
		run.FinishedAt = &finished
	}
	return run, nil
}
