package postgres

import (
	"database/sql"
	"fmt"

	"github.com/aevon-lab/resampler/internal/aggregation"
)

type scanner interface {
	Scan(dest ...interface{}) error
}

// scanRunRow scans one aggregation_runs row.
// Compatible with both sql.Row (single) and sql.Rows (multiple).
func scanRunRow(row scanner) (aggregation.Run, error) {
	var run aggregation.Run
	var status string
	var finishedAt sql.NullTime

	err := row.Scan(
		&run.ID,
		&run.SetupName,
		&run.Begin,
		&run.End,
		&run.Force,
		&status,
		&run.StartedAt,
		&finishedAt,
		&run.Committed,
		&run.Skipped,
		&run.Failed,
	)
	if err != nil {
		return aggregation.Run{}, fmt.Errorf("failed to scan run row: %w", err)
	}

	run.Status = aggregation.RunStatus(status)
	if finishedAt.Valid {
		run.FinishedAt = finishedAt.Time
	}
	return run, nil
}

// nullableError maps an empty error message to SQL NULL.
func nullableError(msg string) sql.NullString {
	return sql.NullString{String: msg, Valid: msg != ""}
}
