package aggregation

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// RunStatus is the lifecycle state of an aggregation run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// Run is one ledger entry describing an aggregation run over [Begin, End).
type Run struct {
	ID         string
	SetupName  string
	Begin      time.Time
	End        time.Time
	Force      bool
	Status     RunStatus
	StartedAt  time.Time
	FinishedAt time.Time
	Committed  int
	Skipped    int
	Failed     int
}

// DayOutcome is the per-catalog result of processing one day of a run.
type DayOutcome struct {
	CatalogID string
	Day       time.Time
	Committed int
	Skipped   int
	Failed    int
	Error     string
}

// RunStore is the durable ledger of aggregation runs.
//
// Contract: FinishRun with RunSucceeded advances the setup checkpoint to the run's End
// in the same transaction that closes the run, so a crash can never leave a checkpoint
// pointing past days that were not processed.
type RunStore interface {
	StartRun(ctx context.Context, run Run) error
	RecordDay(ctx context.Context, runID string, outcome DayOutcome) error
	FinishRun(ctx context.Context, runID string, status RunStatus, finishedAt time.Time) error

	// ReadCheckpoint returns the exclusive end of the last successful run of a setup.
	// Returns the zero time if the setup never completed a run.
	ReadCheckpoint(ctx context.Context, setupName string) (time.Time, error)

	// ListRuns returns the most recent runs of a setup, newest first.
	ListRuns(ctx context.Context, setupName string, limit int) ([]Run, error)
}

// MemoryRunStore is a RunStore kept in process memory.
type MemoryRunStore struct {
	mu          sync.Mutex
	runs        map[string]*Run
	days        map[string][]DayOutcome
	checkpoints map[string]time.Time
}

// NewMemoryRunStore creates an empty in-memory ledger.
func NewMemoryRunStore() *MemoryRunStore {
	return &MemoryRunStore{
		runs:        make(map[string]*Run),
		days:        make(map[string][]DayOutcome),
		checkpoints: make(map[string]time.Time),
	}
}

func (m *MemoryRunStore) StartRun(ctx context.Context, run Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.runs[run.ID]; exists {
		return fmt.Errorf("run %s already exists", run.ID)
	}
	run.Status = RunRunning
	m.runs[run.ID] = &run
	return nil
}

func (m *MemoryRunStore) RecordDay(ctx context.Context, runID string, outcome DayOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[runID]
	if !ok {
		return fmt.Errorf("run %s not found", runID)
	}
	run.Committed += outcome.Committed
	run.Skipped += outcome.Skipped
	run.Failed += outcome.Failed
	m.days[runID] = append(m.days[runID], outcome)
	return nil
}

func (m *MemoryRunStore) FinishRun(ctx context.Context, runID string, status RunStatus, finishedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[runID]
	if !ok {
		return fmt.Errorf("run %s not found", runID)
	}
	run.Status = status
	run.FinishedAt = finishedAt
	if status == RunSucceeded && run.End.After(m.checkpoints[run.SetupName]) {
		m.checkpoints[run.SetupName] = run.End
	}
	return nil
}

func (m *MemoryRunStore) ReadCheckpoint(ctx context.Context, setupName string) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.checkpoints[setupName], nil
}

func (m *MemoryRunStore) ListRuns(ctx context.Context, setupName string, limit int) ([]Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var runs []Run
	for _, run := range m.runs {
		if setupName == "" || run.SetupName == setupName {
			runs = append(runs, *run)
		}
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// Days returns the recorded day outcomes of a run in recording order.
func (m *MemoryRunStore) Days(runID string) []DayOutcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]DayOutcome(nil), m.days[runID]...)
}
