package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aevon-lab/resampler/internal/aggregation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type preparedStatements struct {
	insertRun      *sqlmock.ExpectedPrepare
	readCheckpoint *sqlmock.ExpectedPrepare
	listRuns       *sqlmock.ExpectedPrepare
}

func newMockAdapter(t *testing.T) (*RunAdapter, sqlmock.Sqlmock, preparedStatements) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectQuery(regexp.QuoteMeta(querySchemaExists)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	stmts := preparedStatements{
		insertRun:      mock.ExpectPrepare(regexp.QuoteMeta(queryInsertRun)),
		readCheckpoint: mock.ExpectPrepare(regexp.QuoteMeta(queryReadCheckpoint)),
		listRuns:       mock.ExpectPrepare(regexp.QuoteMeta(queryListRuns)),
	}

	adapter, err := NewRunAdapter(db)
	require.NoError(t, err)
	return adapter, mock, stmts
}

var (
	dayOne = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	dayTwo = dayOne.AddDate(0, 0, 1)
)

func TestNewRunAdapter_RequiresSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(querySchemaExists)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, err = NewRunAdapter(db)
	require.ErrorContains(t, err, "did you run migrations")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunAdapter_StartRun(t *testing.T) {
	adapter, mock, stmts := newMockAdapter(t)
	started := dayTwo.Add(time.Hour)

	stmts.insertRun.ExpectExec().
		WithArgs("run-1", "daily", dayOne, dayTwo, false, "running", started).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := adapter.StartRun(context.Background(), aggregation.Run{
		ID:        "run-1",
		SetupName: "daily",
		Begin:     dayOne,
		End:       dayTwo,
		StartedAt: started,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunAdapter_RecordDayIsTransactional(t *testing.T) {
	adapter, mock, _ := newMockAdapter(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(queryInsertRunDay)).
		WithArgs("run-1", "/plant/a", dayOne, 4, 1, 0, sql.NullString{}).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(queryAddRunCounters)).
		WithArgs("run-1", 4, 1, 0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := adapter.RecordDay(context.Background(), "run-1", aggregation.DayOutcome{
		CatalogID: "/plant/a",
		Day:       dayOne,
		Committed: 4,
		Skipped:   1,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunAdapter_RecordDayUnknownRunRollsBack(t *testing.T) {
	adapter, mock, _ := newMockAdapter(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(queryInsertRunDay)).
		WithArgs("missing", "/plant/a", dayOne, 0, 0, 1, sql.NullString{String: "boom", Valid: true}).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(queryAddRunCounters)).
		WithArgs("missing", 0, 0, 1).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := adapter.RecordDay(context.Background(), "missing", aggregation.DayOutcome{
		CatalogID: "/plant/a",
		Day:       dayOne,
		Failed:    1,
		Error:     "boom",
	})
	require.ErrorContains(t, err, "not found")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunAdapter_FinishRunAdvancesCheckpointOnSuccess(t *testing.T) {
	adapter, mock, _ := newMockAdapter(t)
	finished := dayTwo.Add(2 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(querySelectRunForUpdate)).
		WithArgs("run-1").
		WillReturnRows(sqlmock.NewRows([]string{"setup_name", "end_day"}).AddRow("daily", dayTwo))
	mock.ExpectExec(regexp.QuoteMeta(queryFinishRun)).
		WithArgs("run-1", "succeeded", finished).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(queryAdvanceCheckpoint)).
		WithArgs("daily", dayTwo, finished).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, adapter.FinishRun(context.Background(), "run-1", aggregation.RunSucceeded, finished))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunAdapter_FinishRunKeepsCheckpointOnFailure(t *testing.T) {
	adapter, mock, _ := newMockAdapter(t)
	finished := dayTwo.Add(2 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(querySelectRunForUpdate)).
		WithArgs("run-1").
		WillReturnRows(sqlmock.NewRows([]string{"setup_name", "end_day"}).AddRow("daily", dayTwo))
	mock.ExpectExec(regexp.QuoteMeta(queryFinishRun)).
		WithArgs("run-1", "cancelled", finished).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, adapter.FinishRun(context.Background(), "run-1", aggregation.RunCancelled, finished))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunAdapter_FinishRunCheckpointFailureRollsBack(t *testing.T) {
	adapter, mock, _ := newMockAdapter(t)
	finished := dayTwo.Add(2 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(querySelectRunForUpdate)).
		WithArgs("run-1").
		WillReturnRows(sqlmock.NewRows([]string{"setup_name", "end_day"}).AddRow("daily", dayTwo))
	mock.ExpectExec(regexp.QuoteMeta(queryFinishRun)).
		WithArgs("run-1", "succeeded", finished).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(queryAdvanceCheckpoint)).
		WithArgs("daily", dayTwo, finished).
		WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	err := adapter.FinishRun(context.Background(), "run-1", aggregation.RunSucceeded, finished)
	require.ErrorContains(t, err, "advance checkpoint")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunAdapter_ReadCheckpoint(t *testing.T) {
	adapter, mock, stmts := newMockAdapter(t)

	stmts.readCheckpoint.ExpectQuery().
		WithArgs("daily").
		WillReturnRows(sqlmock.NewRows([]string{"checkpoint_end"}).AddRow(dayTwo))
	stmts.readCheckpoint.ExpectQuery().
		WithArgs("never-ran").
		WillReturnError(sql.ErrNoRows)

	checkpoint, err := adapter.ReadCheckpoint(context.Background(), "daily")
	require.NoError(t, err)
	assert.Equal(t, dayTwo, checkpoint)

	checkpoint, err = adapter.ReadCheckpoint(context.Background(), "never-ran")
	require.NoError(t, err)
	assert.True(t, checkpoint.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunAdapter_ListRuns(t *testing.T) {
	adapter, mock, stmts := newMockAdapter(t)
	started := dayTwo.Add(time.Hour)
	finished := started.Add(time.Minute)

	columns := []string{
		"id", "setup_name", "begin_day", "end_day", "force", "status",
		"started_at", "finished_at", "committed", "skipped", "failed",
	}
	stmts.listRuns.ExpectQuery().
		WithArgs("daily", sql.NullInt64{Int64: 2, Valid: true}).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("run-2", "daily", dayOne, dayTwo, true, "running", started, nil, 1, 0, 0).
			AddRow("run-1", "daily", dayOne, dayTwo, false, "succeeded", started, finished, 4, 2, 1))

	runs, err := adapter.ListRuns(context.Background(), "daily", 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, aggregation.RunRunning, runs[0].Status)
	assert.True(t, runs[0].Force)
	assert.True(t, runs[0].FinishedAt.IsZero())

	assert.Equal(t, aggregation.Run{
		ID:         "run-1",
		SetupName:  "daily",
		Begin:      dayOne,
		End:        dayTwo,
		Status:     aggregation.RunSucceeded,
		StartedAt:  started,
		FinishedAt: finished,
		Committed:  4,
		Skipped:    2,
		Failed:     1,
	}, runs[1])
	require.NoError(t, mock.ExpectationsWereMet())
}
