package readpath

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/aevon-lab/resampler/internal/cache"
	"github.com/aevon-lab/resampler/internal/catalogtree"
	coreagg "github.com/aevon-lab/resampler/internal/core/aggregation"
	"github.com/aevon-lab/resampler/internal/core/catalog"
	"github.com/aevon-lab/resampler/internal/core/interval"
	"github.com/aevon-lab/resampler/internal/source"
)

// maxSamples bounds the size of a single read.
const maxSamples = 1 << 24

const dayLength = 24 * time.Hour

var (
	// ErrInvalidRead marks request validation errors that should return HTTP 400.
	ErrInvalidRead = errors.New("invalid read request")

	// ErrNotFound is returned when the catalog, resource or representation does not exist.
	ErrNotFound = errors.New("item not found")
)

// Service implements the hybrid read path: cached sub-ranges are served from the
// cache, the remaining gaps are read from the backend source and written back.
type Service struct {
	catalogs *catalogtree.Cache
	sources  *source.Registry
	cache    *cache.Cache
	scope    string
}

// NewService creates a read service. A nil cache disables caching.
func NewService(catalogs *catalogtree.Cache, sources *source.Registry, c *cache.Cache, scopePath string) *Service {
	if scopePath == "" {
		scopePath = "/"
	}
	return &Service{
		catalogs: catalogs,
		sources:  sources,
		cache:    c,
		scope:    scopePath,
	}
}

func invalidReadf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRead, fmt.Sprintf(format, args...))
}

// Read returns the samples of the addressed item in [req.Begin, req.End).
func (s *Service) Read(ctx context.Context, req ReadRequest) (*ReadResponse, error) {
	begin, end := req.Begin.UTC(), req.End.UTC()
	if !begin.Before(end) {
		return nil, invalidReadf("end must be after begin")
	}

	cat, ok, err := s.catalogs.Find(ctx, s.scope, req.CatalogID)
	if err != nil {
		return nil, fmt.Errorf("loading catalog tree: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: catalog %q", ErrNotFound, req.CatalogID)
	}
	item, ok := cat.Find(req.ResourceID, req.RepresentationID)
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s/%s", ErrNotFound, req.CatalogID, req.ResourceID, req.RepresentationID)
	}

	samplePeriod := item.Representation.SamplePeriod
	if !begin.Truncate(samplePeriod).Equal(begin) || !end.Truncate(samplePeriod).Equal(end) {
		return nil, invalidReadf("range is not aligned to sample period %s", coreagg.PeriodString(samplePeriod))
	}
	count := int(end.Sub(begin) / samplePeriod)
	if count > maxSamples {
		return nil, invalidReadf("%d samples exceed the limit of %d", count, maxSamples)
	}

	src, err := s.sources.Get(item.Representation.SourceID)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, count*cache.ElementSize)
	gaps, cacheable, err := s.readCached(ctx, item, begin, end, buf)
	if err != nil {
		return nil, err
	}

	for _, gap := range gaps {
		if err := fill(ctx, src, item, begin, gap, buf); err != nil {
			return nil, err
		}
	}

	values := make([]float64, count)
	catalog.Decode(buf, values)

	if cacheable {
		if err := s.writeBack(ctx, item, begin, buf, knownIntervals(gaps, begin, samplePeriod, values)); err != nil {
			return nil, err
		}
	}

	resp := &ReadResponse{
		CatalogID:        item.CatalogID,
		ResourceID:       item.Resource.ID,
		RepresentationID: item.Representation.ID,
		Begin:            begin,
		End:              end,
		SamplePeriod:     coreagg.PeriodString(samplePeriod),
		CachedSamples:    count - sampleCount(gaps, samplePeriod),
		Values:           make([]Value, count),
	}
	for i, v := range values {
		resp.Values[i] = Value(v)
	}

	slog.Debug("[ReadPath] Served read",
		"item", item.Path(),
		"samples", count,
		"cached", resp.CachedSamples,
		"gaps", len(gaps),
	)
	return resp, nil
}

// readCached fills buf from the cache and returns the intervals still missing.
// cacheable is false when the cache is disabled or cannot hold the sample period.
func (s *Service) readCached(ctx context.Context, item catalog.Item, begin, end time.Time, buf []byte) ([]interval.Interval, bool, error) {
	whole := []interval.Interval{interval.New(begin, end)}
	if s.cache == nil {
		return whole, false, nil
	}

	gaps, err := s.cache.Read(ctx, item, begin, end, buf)
	switch {
	case err == nil:
		return gaps, true, nil
	case errors.Is(err, cache.ErrUnsupportedSamplePeriod):
		slog.Debug("[ReadPath] Sample period not cacheable, reading from source",
			"item", item.Path(),
			"sample_period", item.Representation.SamplePeriod,
		)
		return whole, false, nil
	default:
		return nil, false, err
	}
}

// fill reads gap from src and stores its float64 values, with bad samples as NaN, into
// buf at the offset of gap relative to begin.
func fill(ctx context.Context, src source.Source, item catalog.Item, begin time.Time, gap interval.Interval, buf []byte) error {
	rep := item.Representation
	n := int(gap.Duration() / rep.SamplePeriod)
	data := make([]byte, n*rep.ElementSize())
	status := make([]byte, n)

	if err := src.ReadRaw(ctx, item, gap.Begin, gap.End, data, status); err != nil {
		return fmt.Errorf("reading %s from source %s: %w", item.Path(), src.ID(), err)
	}

	values := make([]float64, n)
	if err := catalog.DecodeFloat64(rep.DataType, data, values); err != nil {
		return err
	}
	catalog.ApplyStatus(values, status)

	offset := int(gap.Begin.Sub(begin)/rep.SamplePeriod) * cache.ElementSize
	catalog.EncodeFloat64(values, buf[offset:])
	return nil
}

// writeBack stores the filled intervals in the cache. Only cancellation is returned;
// other write failures are logged.
func (s *Service) writeBack(ctx context.Context, item catalog.Item, begin time.Time, buf []byte, known []interval.Interval) error {
	if len(known) == 0 {
		return nil
	}
	if err := s.cache.Write(ctx, item, begin, buf, known); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Warn("[ReadPath] Cache write failed", "item", item.Path(), "error", err)
	}
	return nil
}

// knownIntervals splits gaps at day boundaries and drops the days that came back
// without a single good sample. A source reports a day it has no data for yet as all
// bad, and such a day must be read again instead of being served from the cache.
func knownIntervals(gaps []interval.Interval, begin time.Time, samplePeriod time.Duration, values []float64) []interval.Interval {
	var known []interval.Interval
	for _, gap := range gaps {
		for from := gap.Begin; from.Before(gap.End); {
			to := coreagg.BucketFor(from, dayLength).Add(dayLength)
			if to.After(gap.End) {
				to = gap.End
			}
			first := int(from.Sub(begin) / samplePeriod)
			last := int(to.Sub(begin) / samplePeriod)
			if hasGoodSample(values[first:last]) {
				known = append(known, interval.New(from, to))
			}
			from = to
		}
	}
	return interval.Merge(known)
}

func hasGoodSample(values []float64) bool {
	for _, v := range values {
		if !math.IsNaN(v) {
			return true
		}
	}
	return false
}

func sampleCount(intervals []interval.Interval, samplePeriod time.Duration) int {
	total := 0
	for _, iv := range intervals {
		total += int(iv.Duration() / samplePeriod)
	}
	return total
}
