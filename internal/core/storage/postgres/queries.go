package postgres

// SQL queries for the aggregation run ledger

const (
	// querySchemaExists checks that migrations created the ledger tables.
	querySchemaExists = `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_name = 'aggregation_runs'
		)
	`

	queryInsertRun = `
		INSERT INTO aggregation_runs (
			id, setup_name, begin_day, end_day, force, status, started_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	// queryInsertRunDay records one (catalog, day) outcome.
	queryInsertRunDay = `
		INSERT INTO aggregation_run_days (
			run_id, catalog_id, day, committed, skipped, failed, error
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	queryAddRunCounters = `
		UPDATE aggregation_runs
		SET committed = committed + $2,
		    skipped   = skipped + $3,
		    failed    = failed + $4
		WHERE id = $1
	`

	querySelectRunForUpdate = `
		SELECT setup_name, end_day
		FROM aggregation_runs
		WHERE id = $1
		FOR UPDATE
	`

	queryFinishRun = `
		UPDATE aggregation_runs
		SET status = $2, finished_at = $3
		WHERE id = $1
	`

	// queryAdvanceCheckpoint never moves a checkpoint backwards.
	queryAdvanceCheckpoint = `
		INSERT INTO aggregation_checkpoints (setup_name, checkpoint_end, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (setup_name) DO UPDATE SET
			checkpoint_end = GREATEST(aggregation_checkpoints.checkpoint_end, EXCLUDED.checkpoint_end),
			updated_at     = EXCLUDED.updated_at
	`

	queryReadCheckpoint = `SELECT checkpoint_end FROM aggregation_checkpoints WHERE setup_name = $1`

	// queryListRuns returns the newest runs first; an empty setup name lists all setups.
	queryListRuns = `
		SELECT
			id, setup_name, begin_day, end_day, force, status,
			started_at, finished_at, committed, skipped, failed
		FROM aggregation_runs
		WHERE $1 = '' OR setup_name = $1
		ORDER BY started_at DESC
		LIMIT $2
	`
)
