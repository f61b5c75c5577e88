package aggregation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aevon-lab/resampler/internal/core/aggregation"
)

// maxDaysPerTick bounds the backlog one setup may work off in a single tick.
const maxDaysPerTick = 31

// Scheduler runs every configured setup on a periodic interval, aggregating the
// completed days after each setup's checkpoint.
type Scheduler struct {
	interval time.Duration
	setups   aggregation.SetupRepository
	runs     RunStore
	service  *Service
	now      func() time.Time
}

// NewScheduler creates a scheduler over all setups of repo.
func NewScheduler(interval time.Duration, setups aggregation.SetupRepository, runs RunStore, service *Service) *Scheduler {
	return &Scheduler{
		interval: interval,
		setups:   setups,
		runs:     runs,
		service:  service,
		now:      time.Now,
	}
}

// Start begins periodic aggregation.
// Runs until context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("[Scheduler] Starting aggregation scheduler",
		"interval", s.interval,
		"setups", len(s.setups.GetSetups()),
	)

	// Catch up with any backlog before the first tick.
	s.tick(ctx)

	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-ctx.Done():
			slog.Info("[Scheduler] Stopping (context cancelled)")
			return nil
		}
	}
}

// tick runs each setup over its pending window.
func (s *Scheduler) tick(ctx context.Context) {
	today := aggregation.BucketFor(s.now(), dayLength)

	for _, setup := range s.setups.GetSetups() {
		if ctx.Err() != nil {
			return
		}

		checkpoint, err := s.runs.ReadCheckpoint(ctx, setup.Name)
		if err != nil {
			slog.Error("[Scheduler] Failed to read checkpoint", "setup", setup.Name, "error", err)
			continue
		}

		begin, end, ok := pendingWindow(setup, checkpoint, today)
		if !ok {
			slog.Debug("[Scheduler] Setup up to date", "setup", setup.Name, "checkpoint", checkpoint)
			continue
		}

		windowed := setup
		windowed.Begin = begin
		windowed.End = end
		if _, err := s.service.Run(ctx, windowed); err != nil {
			if errors.Is(err, context.Canceled) {
				slog.Info("[Scheduler] Run interrupted by context cancellation", "setup", setup.Name)
				return
			}
			slog.Error("[Scheduler] Aggregation run failed", "setup", setup.Name, "error", err)
		}
	}
}

// pendingWindow returns the day range a setup still has to process, at most
// maxDaysPerTick days and never including today.
func pendingWindow(setup aggregation.Setup, checkpoint, today time.Time) (time.Time, time.Time, bool) {
	end := today
	if !setup.End.IsZero() && setup.End.Before(end) {
		end = setup.End
	}

	begin := checkpoint
	if begin.IsZero() {
		begin = setup.Begin
	}
	if begin.IsZero() {
		begin = end.Add(-dayLength)
	}
	if !setup.Begin.IsZero() && begin.Before(setup.Begin) {
		begin = setup.Begin
	}

	if !begin.Before(end) {
		return time.Time{}, time.Time{}, false
	}
	if limit := begin.Add(maxDaysPerTick * dayLength); end.After(limit) {
		slog.Warn("[Scheduler] Backlog exceeds one tick, resuming on next tick",
			"setup", setup.Name,
			"begin", begin.Format(time.DateOnly),
			"end", end.Format(time.DateOnly),
			"max_days", maxDaysPerTick,
		)
		end = limit
	}
	return begin, end, true
}
