package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/aevon-lab/resampler/internal/aggregation"
)

// RunAdapter implements aggregation.RunStore using PostgreSQL.
// Closing a successful run and advancing its setup checkpoint happen in a single
// transaction.
type RunAdapter struct {
	db                 *sql.DB
	stmtInsertRun      *sql.Stmt
	stmtReadCheckpoint *sql.Stmt
	stmtListRuns       *sql.Stmt
}

// NewRunAdapter creates a RunAdapter sharing the given connection.
// The schema must exist; run migrations before calling it.
func NewRunAdapter(db *sql.DB) (*RunAdapter, error) {
	if err := validateSchema(db); err != nil {
		return nil, fmt.Errorf("schema validation failed - did you run migrations?: %w", err)
	}

	stmtInsert, err := db.Prepare(queryInsertRun)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare insertRun statement: %w", err)
	}

	stmtCheckpoint, err := db.Prepare(queryReadCheckpoint)
	if err != nil {
		stmtInsert.Close()
		return nil, fmt.Errorf("failed to prepare readCheckpoint statement: %w", err)
	}

	stmtList, err := db.Prepare(queryListRuns)
	if err != nil {
		stmtInsert.Close()
		stmtCheckpoint.Close()
		return nil, fmt.Errorf("failed to prepare listRuns statement: %w", err)
	}

	slog.Info("[Postgres] Run ledger initialized with prepared statements")

	return &RunAdapter{
		db:                 db,
		stmtInsertRun:      stmtInsert,
		stmtReadCheckpoint: stmtCheckpoint,
		stmtListRuns:       stmtList,
	}, nil
}

// StartRun inserts a run in the running state.
func (a *RunAdapter) StartRun(ctx context.Context, run aggregation.Run) error {
	_, err := a.stmtInsertRun.ExecContext(ctx,
		run.ID,
		run.SetupName,
		run.Begin,
		run.End,
		run.Force,
		string(aggregation.RunRunning),
		run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}

	slog.Debug("[Postgres] Started run", "run_id", run.ID, "setup", run.SetupName)
	return nil
}

// RecordDay stores a day outcome and adds its counters to the run in one transaction.
func (a *RunAdapter) RecordDay(ctx context.Context, runID string, outcome aggregation.DayOutcome) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record day: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, queryInsertRunDay,
		runID,
		outcome.CatalogID,
		outcome.Day,
		outcome.Committed,
		outcome.Skipped,
		outcome.Failed,
		nullableError(outcome.Error),
	); err != nil {
		return fmt.Errorf("record day: insert outcome: %w", err)
	}

	result, err := tx.ExecContext(ctx, queryAddRunCounters, runID, outcome.Committed, outcome.Skipped, outcome.Failed)
	if err != nil {
		return fmt.Errorf("record day: update run counters: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("record day: check run update: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("record day: run %s not found", runID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record day: commit: %w", err)
	}
	return nil
}

// FinishRun closes a run. A succeeded run advances its setup checkpoint to the run's
// end day in the same transaction.
func (a *RunAdapter) FinishRun(ctx context.Context, runID string, status aggregation.RunStatus, finishedAt time.Time) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("finish run: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var setupName string
	var endDay time.Time
	err = tx.QueryRowContext(ctx, querySelectRunForUpdate, runID).Scan(&setupName, &endDay)
	if err == sql.ErrNoRows {
		return fmt.Errorf("finish run: run %s not found", runID)
	}
	if err != nil {
		return fmt.Errorf("finish run: read run for update: %w", err)
	}

	if _, err := tx.ExecContext(ctx, queryFinishRun, runID, string(status), finishedAt); err != nil {
		return fmt.Errorf("finish run: update status: %w", err)
	}

	if status == aggregation.RunSucceeded {
		if _, err := tx.ExecContext(ctx, queryAdvanceCheckpoint, setupName, endDay, finishedAt); err != nil {
			return fmt.Errorf("finish run: advance checkpoint: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("finish run: commit: %w", err)
	}

	slog.Info("[Postgres] Finished run",
		"run_id", runID,
		"setup", setupName,
		"status", status,
	)
	return nil
}

// ReadCheckpoint returns the setup checkpoint.
// Returns the zero time if the setup never completed a run.
func (a *RunAdapter) ReadCheckpoint(ctx context.Context, setupName string) (time.Time, error) {
	var checkpoint time.Time
	err := a.stmtReadCheckpoint.QueryRowContext(ctx, setupName).Scan(&checkpoint)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("read checkpoint: %w", err)
	}
	return checkpoint.UTC(), nil
}

// ListRuns returns the newest runs of a setup, or of all setups when setupName is empty.
// A non-positive limit returns every run.
func (a *RunAdapter) ListRuns(ctx context.Context, setupName string, limit int) ([]aggregation.Run, error) {
	// LIMIT NULL means no limit.
	rows, err := a.stmtListRuns.QueryContext(ctx, setupName, sql.NullInt64{Int64: int64(limit), Valid: limit > 0})
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []aggregation.Run
	for rows.Next() {
		run, err := scanRunRow(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// Close closes the prepared statements. The shared connection is closed by its owner.
func (a *RunAdapter) Close() error {
	var firstErr error

	if err := a.stmtInsertRun.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to close insertRun statement: %w", err)
	}
	if err := a.stmtReadCheckpoint.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to close readCheckpoint statement: %w", err)
	}
	if err := a.stmtListRuns.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to close listRuns statement: %w", err)
	}

	if firstErr != nil {
		return firstErr
	}
	slog.Info("[Postgres] Run ledger closed gracefully")
	return nil
}
