package aggregation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aevon-lab/resampler/internal/catalogtree"
	"github.com/aevon-lab/resampler/internal/core/aggregation"
	"github.com/aevon-lab/resampler/internal/source"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const defaultWorkerCount = 4

// Options controls throughput and placement of aggregation runs.
type Options struct {
	DataDir          string
	ScopePath        string
	WorkerCount      int
	ChunkBytes       int
	ChannelCapacity  int
	QualityThreshold *float64 // nil selects the default threshold
	CommitRetries    int
	CommitRetryDelay time.Duration
}

func (o Options) normalized() Options {
	n := o
	if n.WorkerCount <= 0 {
		n.WorkerCount = defaultWorkerCount
	}
	if n.ScopePath == "" {
		n.ScopePath = "/"
	}
	return n
}

// Service executes aggregation setups day by day.
type Service struct {
	catalogs *catalogtree.Cache
	sources  *source.Registry
	runs     RunStore
	pipeline *Pipeline
	opts     Options
}

// NewService wires the catalog tree cache, the source registry and the run ledger.
func NewService(catalogs *catalogtree.Cache, sources *source.Registry, runs RunStore, opts Options) *Service {
	opts = opts.normalized()
	pipeline := NewPipeline(PipelineOptions{
		DataDir:          opts.DataDir,
		ChunkBytes:       opts.ChunkBytes,
		ChannelCapacity:  opts.ChannelCapacity,
		QualityThreshold: opts.QualityThreshold,
	}, NewCommitter(opts.CommitRetries, opts.CommitRetryDelay))

	return &Service{
		catalogs: catalogs,
		sources:  sources,
		runs:     runs,
		pipeline: pipeline,
		opts:     opts,
	}
}

// Run validates the setup and aggregates every day of [setup.Begin, setup.End).
// Only validation errors and cancellation are returned; per-resource failures are
// logged and counted in the run summary.
func (s *Service) Run(ctx context.Context, setup aggregation.Setup) (Run, error) {
	return s.RunWithID(ctx, uuid.NewString(), setup)
}

// RunWithID is Run with a caller-chosen run id.
func (s *Service) RunWithID(ctx context.Context, runID string, setup aggregation.Setup) (Run, error) {
	if err := setup.Validate(); err != nil {
		return Run{}, err
	}

	tree, err := s.catalogs.Get(ctx, s.opts.ScopePath)
	if err != nil {
		return Run{}, fmt.Errorf("load catalog tree: %w", err)
	}
	instructions, err := Plan(setup, tree)
	if err != nil {
		return Run{}, err
	}

	run := Run{
		ID:        runID,
		SetupName: setup.Name,
		Begin:     setup.Begin,
		End:       setup.End,
		Force:     setup.Force,
		Status:    RunRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := s.runs.StartRun(ctx, run); err != nil {
		return Run{}, fmt.Errorf("start run: %w", err)
	}

	days := setup.Days()
	slog.Info("[Aggregation] Starting run",
		"run_id", run.ID,
		"setup", setup.Name,
		"begin", setup.Begin.Format(time.DateOnly),
		"end", setup.End.Format(time.DateOnly),
		"days", len(days),
		"catalogs", len(instructions),
		"workers", s.opts.WorkerCount,
	)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.WorkerCount)
	for _, d := range days {
		g.Go(func() error {
			outcomes, err := s.processDay(gctx, d, instructions, setup.Force)
			for _, outcome := range outcomes {
				mu.Lock()
				run.Committed += outcome.Committed
				run.Skipped += outcome.Skipped
				run.Failed += outcome.Failed
				mu.Unlock()
				if recErr := s.runs.RecordDay(context.WithoutCancel(gctx), run.ID, outcome); recErr != nil {
					slog.Error("[Aggregation] Failed to record day", "run_id", run.ID, "error", recErr)
				}
			}
			return err
		})
	}
	runErr := g.Wait()

	run.FinishedAt = time.Now().UTC()
	run.Status = RunSucceeded
	if runErr != nil {
		run.Status = RunFailed
		if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
			run.Status = RunCancelled
		}
	}
	if err := s.runs.FinishRun(context.WithoutCancel(ctx), run.ID, run.Status, run.FinishedAt); err != nil {
		slog.Error("[Aggregation] Failed to finish run", "run_id", run.ID, "error", err)
	}

	slog.Info("[Aggregation] Run complete",
		"run_id", run.ID,
		"status", run.Status,
		"committed", run.Committed,
		"skipped", run.Skipped,
		"failed", run.Failed,
		"duration", run.FinishedAt.Sub(run.StartedAt),
	)
	return run, runErr
}

// processDay runs every instruction for one day. Only cancellation is returned as error.
func (s *Service) processDay(ctx context.Context, day time.Time, instructions []Instruction, force bool) ([]DayOutcome, error) {
	var outcomes []DayOutcome
	for _, instr := range instructions {
		outcome := DayOutcome{CatalogID: instr.CatalogID, Day: day}
		err := s.processCatalogDay(ctx, day, instr, force, &outcome)
		outcomes = append(outcomes, outcome)
		if err != nil {
			return outcomes, err
		}
	}
	return outcomes, nil
}

func (s *Service) processCatalogDay(ctx context.Context, day time.Time, instr Instruction, force bool, outcome *DayOutcome) error {
	for _, sourceID := range instr.SourceOrder {
		if err := ctx.Err(); err != nil {
			return err
		}

		src, err := s.availableSource(ctx, sourceID, instr.CatalogID, day)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Warn("[Aggregation] Skip source",
				"source_id", sourceID,
				"catalog_id", instr.CatalogID,
				"day", day.Format(time.DateOnly),
				"error", err,
			)
			outcome.Error = err.Error()
			continue
		}
		if src == nil {
			slog.Debug("[Aggregation] No data available",
				"source_id", sourceID,
				"catalog_id", instr.CatalogID,
				"day", day.Format(time.DateOnly),
			)
			continue
		}

		for _, ra := range instr.Sources[sourceID] {
			result, err := s.pipeline.Run(ctx, src, instr.CatalogID, day, ra, force)
			outcome.Committed += result.Committed
			outcome.Skipped += result.Skipped
			outcome.Failed += result.Failed
			if err == nil {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Error("[Aggregation] Resource failed",
				"catalog_id", instr.CatalogID,
				"resource_id", ra.Resource.ID,
				"day", day.Format(time.DateOnly),
				"state", result.State,
				"error", err,
			)
			outcome.Failed++
			outcome.Error = err.Error()
		}
	}
	return nil
}

// availableSource resolves sourceID and checks it has data for the day.
// A nil source with nil error means the source has nothing for that day.
func (s *Service) availableSource(ctx context.Context, sourceID, catalogID string, day time.Time) (source.Source, error) {
	src, err := s.sources.Get(sourceID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	ok, err := src.IsDataAvailable(ctx, catalogID, day)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBackendUnavailable, sourceID, err)
	}
	if !ok {
		return nil, nil
	}
	return src, nil
}
