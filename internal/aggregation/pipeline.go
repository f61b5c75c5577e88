package aggregation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aevon-lab/resampler/internal/core/aggregation"
	"github.com/aevon-lab/resampler/internal/core/catalog"
	"github.com/aevon-lab/resampler/internal/source"
	"golang.org/x/sync/errgroup"
)

const (
	defaultChunkBytes      = 4 << 20
	defaultChannelCapacity = 4
	dayLength              = 24 * time.Hour
)

// State is the lifecycle position of one pipeline run.
type State string

const (
	StatePlanning   State = "planning"
	StateStreaming  State = "streaming"
	StateCommitting State = "committing"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// PipelineOptions tunes the per-resource pipeline.
type PipelineOptions struct {
	DataDir         string
	ChunkBytes      int
	ChannelCapacity int
	// QualityThreshold is the minimum fraction of good samples per bucket.
	// nil selects aggregation.DefaultQualityThreshold; 0 accepts every bucket.
	QualityThreshold *float64
}

func (o PipelineOptions) normalized() PipelineOptions {
	n := o
	if n.ChunkBytes <= 0 {
		n.ChunkBytes = defaultChunkBytes
	}
	if n.ChannelCapacity <= 0 {
		n.ChannelCapacity = defaultChannelCapacity
	}
	if n.QualityThreshold == nil {
		threshold := aggregation.DefaultQualityThreshold
		n.QualityThreshold = &threshold
	}
	return n
}

// Result summarizes one pipeline run.
type Result struct {
	State     State
	Committed int
	Skipped   int
	Failed    int
}

// Pipeline computes every aggregate of one resource for one day.
type Pipeline struct {
	opts      PipelineOptions
	committer *Committer
}

// NewPipeline creates a pipeline writing below opts.DataDir.
func NewPipeline(opts PipelineOptions, committer *Committer) *Pipeline {
	return &Pipeline{opts: opts.normalized(), committer: committer}
}

// Run moves through Planning, Streaming and Committing for the resource on day.
// Commit failures of single units are logged and counted; the returned error is
// reserved for stream failures and cancellation.
func (p *Pipeline) Run(
	ctx context.Context,
	src source.Source,
	catalogID string,
	day time.Time,
	ra ResourceAggregations,
	force bool,
) (Result, error) {
	result := Result{State: StatePlanning}
	logger := slog.With("catalog_id", catalogID, "resource_id", ra.Resource.ID, "day", day.Format(time.DateOnly))

	units, skipped := p.planUnits(catalogID, day, ra, force, logger)
	result.Skipped = skipped
	if len(units) == 0 {
		result.State = StateDone
		return result, nil
	}

	result.State = StateStreaming
	item := catalog.Item{CatalogID: catalogID, Resource: ra.Resource, Representation: ra.Representation}
	if err := p.stream(ctx, src, item, day, units); err != nil {
		result.State = StateFailed
		return result, err
	}

	result.State = StateCommitting
	for _, u := range units {
		if err := ctx.Err(); err != nil {
			result.State = StateFailed
			return result, err
		}
		if err := p.committer.Commit(ctx, u.Path, u.Values()); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				result.State = StateFailed
				return result, err
			}
			logger.Error("[Pipeline] Commit failed",
				"period", aggregation.PeriodString(u.Period),
				"method", u.Method,
				"error", err,
			)
			result.Failed++
			continue
		}
		result.Committed++
	}

	result.State = StateDone
	logger.Debug("[Pipeline] Resource complete",
		"committed", result.Committed,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)
	return result, nil
}

// planUnits expands the matched aggregations into units, dropping combinations the
// representation cannot serve and, unless force is set, targets that already exist.
func (p *Pipeline) planUnits(catalogID string, day time.Time, ra ResourceAggregations, force bool, logger *slog.Logger) ([]*Unit, int) {
	rep := ra.Representation
	seen := make(map[string]bool)
	skipped := 0

	var units []*Unit
	for _, agg := range ra.Aggregations {
		for _, period := range agg.Periods {
			if !periodFits(period, rep.SamplePeriod) {
				logger.Warn("[Pipeline] Skip period incompatible with sample period",
					"period", aggregation.PeriodString(period),
					"sample_period", aggregation.PeriodString(rep.SamplePeriod),
				)
				continue
			}
			for _, spec := range agg.Methods {
				if spec.Method.IsBitwise() && !rep.DataType.IsInteger() {
					logger.Warn("[Pipeline] Skip bitwise method on non-integer data",
						"method", spec.Method,
						"data_type", rep.DataType,
					)
					continue
				}

				path := OutputPath(p.opts.DataDir, catalogID, day, ra.Resource.ID, period, spec.Method)
				if seen[path] {
					continue
				}
				seen[path] = true

				if !force {
					if _, err := os.Stat(path); err == nil {
						skipped++
						continue
					}
				}
				units = append(units, newUnit(period, spec, rep.SamplePeriod, path))
			}
		}
	}
	return units, skipped
}

// stream runs the reader and the aggregator concurrently over the day.
func (p *Pipeline) stream(ctx context.Context, src source.Source, item catalog.Item, dayBegin time.Time, units []*Unit) error {
	rep := item.Representation
	daySamples := int(dayLength / rep.SamplePeriod)
	chunk := chunkSamples(units, daySamples, rep.ElementSize(), p.opts.ChunkBytes)

	g, gctx := errgroup.WithContext(ctx)
	dataCh, statusCh := StreamRaw(gctx, g, src, item, dayBegin, dayBegin.Add(dayLength), chunk, p.opts.ChannelCapacity)

	g.Go(func() error {
		values := make([]float64, chunk)
		for {
			data, ok, err := receive(gctx, dataCh)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			status, ok, err := receive(gctx, statusCh)
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("status stream ended before data stream")
			}
			if err := p.aggregateChunk(units, rep.DataType, data, status, values); err != nil {
				return err
			}
		}
	})

	return g.Wait()
}

// aggregateChunk feeds one chunk to every unit whose kernel evenly divides it.
// Float samples are decoded once per chunk and shared by all float units.
func (p *Pipeline) aggregateChunk(units []*Unit, dataType catalog.DataType, data, status []byte, values []float64) error {
	samples := len(status)
	values = values[:samples]
	decoded := false

	for _, u := range units {
		if samples%u.KernelSize != 0 {
			continue
		}
		result := u.next(samples)

		var err error
		if u.Method.IsBitwise() {
			err = applyBitwise(dataType, u.Method, u.KernelSize, data, status, *p.opts.QualityThreshold, result)
		} else {
			if !decoded {
				if err := catalog.DecodeFloat64(dataType, data, values); err != nil {
					return err
				}
				decoded = true
			}
			err = aggregation.Apply(u.Method, u.Argument, u.KernelSize, values, status, *p.opts.QualityThreshold, result)
		}
		if err != nil {
			return fmt.Errorf("%s %s: %w", aggregation.PeriodString(u.Period), u.Method, err)
		}
	}
	return nil
}

// applyBitwise dispatches the bitwise kernels on the closed set of integer types.
func applyBitwise(dataType catalog.DataType, method aggregation.Method, kernelSize int, raw, status []byte, threshold float64, result []float64) error {
	switch dataType {
	case catalog.Uint8:
		return bitwise[uint8](method, kernelSize, raw, status, threshold, result)
	case catalog.Int8:
		return bitwise[int8](method, kernelSize, raw, status, threshold, result)
	case catalog.Uint16:
		return bitwise[uint16](method, kernelSize, raw, status, threshold, result)
	case catalog.Int16:
		return bitwise[int16](method, kernelSize, raw, status, threshold, result)
	case catalog.Uint32:
		return bitwise[uint32](method, kernelSize, raw, status, threshold, result)
	case catalog.Int32:
		return bitwise[int32](method, kernelSize, raw, status, threshold, result)
	case catalog.Uint64:
		return bitwise[uint64](method, kernelSize, raw, status, threshold, result)
	case catalog.Int64:
		return bitwise[int64](method, kernelSize, raw, status, threshold, result)
	default:
		return fmt.Errorf("method %q requires integer samples, got %s", method, dataType)
	}
}

func bitwise[T catalog.Integer](method aggregation.Method, kernelSize int, raw, status []byte, threshold float64, result []float64) error {
	values := make([]T, len(status))
	catalog.Decode(raw, values)
	return aggregation.ApplyBitwise(method, kernelSize, values, status, threshold, result)
}
