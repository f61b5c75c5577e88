package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aevon-lab/resampler/internal/core/catalog"
	"github.com/aevon-lab/resampler/internal/core/interval"
	"github.com/aevon-lab/resampler/internal/core/partition"
)

// ElementSize is the width of one cached sample. The cache holds decoded float64
// values with bad samples already replaced by NaN.
const ElementSize = 8

// Cache maps arbitrary [begin, end) requests onto calendar-aligned cache files.
// It is best-effort: file I/O failures are logged and reported as cache misses.
// Access to one cache file is serialized through striped per-key locks.
type Cache struct {
	store Store
	locks partition.Locks
}

// New creates a cache on top of store.
func New(store Store) *Cache {
	return &Cache{store: store}
}

// Read fills dst with every cached sample of item in [begin, end) and returns the
// minimal set of uncached intervals. dst[0] corresponds to begin.
func (c *Cache) Read(ctx context.Context, item catalog.Item, begin, end time.Time, dst []byte) ([]interval.Interval, error) {
	samplePeriod := item.Representation.SamplePeriod
	filePeriod, err := FilePeriod(samplePeriod)
	if err != nil {
		return nil, err
	}
	begin, end = begin.UTC(), end.UTC()
	if err := checkAligned(begin, end, samplePeriod); err != nil {
		return nil, err
	}

	var uncached []interval.Interval
	for fileBegin := begin.Truncate(filePeriod); fileBegin.Before(end); fileBegin = fileBegin.Add(filePeriod) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		part, _ := interval.New(begin, end).Overlap(interval.New(fileBegin, fileBegin.Add(filePeriod)))
		slice := dst[byteOffset(part.Begin.Sub(begin), samplePeriod):byteOffset(part.End.Sub(begin), samplePeriod)]

		key := keyFor(item, fileBegin)
		gaps, err := c.readFile(key, filePeriod, samplePeriod, part, slice)
		if err != nil {
			if !errors.Is(err, ErrNotCached) {
				slog.Warn("[Cache] Read failed, treating as miss", "key", key.String(), "error", err)
			}
			gaps = []interval.Interval{part}
		}
		uncached = append(uncached, gaps...)
	}

	return interval.Merge(uncached), nil
}

func (c *Cache) readFile(key Key, filePeriod, samplePeriod time.Duration, part interval.Interval, dst []byte) ([]interval.Interval, error) {
	unlock := c.locks.Lock(key.String())
	defer unlock()

	stream, err := c.store.Open(key, false)
	if err != nil {
		return nil, err
	}
	entry, err := OpenEntryFile(key.FileBegin, filePeriod, samplePeriod, ElementSize, stream)
	if err != nil {
		closeStream(stream)
		return nil, err
	}
	defer entry.Close()

	return entry.Read(part.Begin, part.End, dst)
}

// Write stores the parts of src listed in intervals. src[0] corresponds to begin and
// every interval must lie within the range src covers. Per-file failures are logged
// and skipped; only an uncacheable sample period or cancellation is returned.
func (c *Cache) Write(ctx context.Context, item catalog.Item, begin time.Time, src []byte, intervals []interval.Interval) error {
	samplePeriod := item.Representation.SamplePeriod
	filePeriod, err := FilePeriod(samplePeriod)
	if err != nil {
		return err
	}
	begin = begin.UTC()
	covered := interval.New(begin, begin.Add(time.Duration(len(src)/ElementSize)*samplePeriod))

	for _, iv := range intervals {
		iv, ok := iv.Overlap(covered)
		if !ok {
			continue
		}

		for fileBegin := iv.Begin.Truncate(filePeriod); fileBegin.Before(iv.End); fileBegin = fileBegin.Add(filePeriod) {
			if err := ctx.Err(); err != nil {
				return err
			}

			part, _ := iv.Overlap(interval.New(fileBegin, fileBegin.Add(filePeriod)))
			slice := src[byteOffset(part.Begin.Sub(begin), samplePeriod):byteOffset(part.End.Sub(begin), samplePeriod)]

			key := keyFor(item, fileBegin)
			if err := c.writeFile(key, filePeriod, samplePeriod, part.Begin, slice); err != nil {
				slog.Warn("[Cache] Write failed, skipping", "key", key.String(), "error", err)
			}
		}
	}
	return nil
}

func (c *Cache) writeFile(key Key, filePeriod, samplePeriod time.Duration, begin time.Time, src []byte) error {
	unlock := c.locks.Lock(key.String())
	defer unlock()

	stream, err := c.store.Open(key, true)
	if err != nil {
		return err
	}
	entry, err := OpenEntryFile(key.FileBegin, filePeriod, samplePeriod, ElementSize, stream)
	if err != nil {
		closeStream(stream)
		return err
	}
	defer entry.Close()

	return entry.Write(begin, src)
}

// Clear removes all cache files of a catalog whose file period begins in [begin, end).
func (c *Cache) Clear(ctx context.Context, catalogID string, begin, end time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.store.Remove(catalogID, begin, end); err != nil {
		return fmt.Errorf("clear cache for %s: %w", catalogID, err)
	}
	slog.Info("[Cache] Cleared", "catalog_id", catalogID, "begin", begin, "end", end)
	return nil
}

func keyFor(item catalog.Item, fileBegin time.Time) Key {
	return Key{
		CatalogID:        item.CatalogID,
		ResourceID:       item.Resource.ID,
		RepresentationID: item.Representation.ID,
		FileBegin:        fileBegin,
	}
}

func byteOffset(d, samplePeriod time.Duration) int64 {
	return int64(d/samplePeriod) * ElementSize
}

func checkAligned(begin, end time.Time, samplePeriod time.Duration) error {
	if end.Before(begin) {
		return fmt.Errorf("end %s before begin %s", end, begin)
	}
	if begin.Sub(begin.Truncate(samplePeriod)) != 0 || end.Sub(end.Truncate(samplePeriod)) != 0 {
		return fmt.Errorf("range [%s, %s) is not aligned to sample period %s", begin, end, samplePeriod)
	}
	return nil
}

func closeStream(stream Stream) {
	if closer, ok := stream.(interface{ Close() error }); ok {
		closer.Close()
	}
}
