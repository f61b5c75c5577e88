package aggregation

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aevon-lab/resampler/internal/core/aggregation"
	"github.com/aevon-lab/resampler/internal/core/catalog"
)

// RepresentationFor describes how committed aggregates of (period, method) are exposed
// as a representation of the synthetic aggregation source.
func RepresentationFor(period time.Duration, method aggregation.Method) catalog.Representation {
	return catalog.Representation{
		ID:           aggregation.PeriodString(period) + "_" + string(method),
		SamplePeriod: period,
		DataType:     catalog.Float64,
		SourceID:     SourceID,
	}
}

// parseRepresentationID splits "{n}_{unit}_{method}" back into period and method.
func parseRepresentationID(id string) (time.Duration, aggregation.Method, error) {
	parts := strings.SplitN(id, "_", 3)
	if len(parts) != 3 {
		return 0, "", fmt.Errorf("malformed aggregation representation %q", id)
	}
	period, err := aggregation.ParsePeriod(parts[0] + "_" + parts[1])
	if err != nil {
		return 0, "", err
	}
	return period, aggregation.Method(parts[2]), nil
}

// FileSource re-serves committed aggregation files. Days without a file read as bad samples.
type FileSource struct {
	dataDir string
}

// NewFileSource serves the aggregation files below dataDir.
func NewFileSource(dataDir string) *FileSource {
	return &FileSource{dataDir: dataDir}
}

func (f *FileSource) ID() string { return SourceID }

func (f *FileSource) IsDataAvailable(ctx context.Context, catalogID string, day time.Time) (bool, error) {
	day = day.UTC()
	dir := filepath.Join(f.dataDir, url.PathEscape(catalogID), day.Format("2006-01"), day.Format("02"))
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return len(entries) > 0, nil
}

func (f *FileSource) ReadRaw(ctx context.Context, item catalog.Item, begin, end time.Time, data, status []byte) error {
	period, method, err := parseRepresentationID(item.Representation.ID)
	if err != nil {
		return err
	}
	if len(data) != len(status)*8 {
		return fmt.Errorf("data buffer holds %d bytes, want %d", len(data), len(status)*8)
	}

	offset := 0
	for dayBegin := aggregation.BucketFor(begin, dayLength); dayBegin.Before(end); dayBegin = dayBegin.Add(dayLength) {
		if err := ctx.Err(); err != nil {
			return err
		}

		from := maxTime(begin, dayBegin)
		to := minTime(end, dayBegin.Add(dayLength))
		n := int(to.Sub(from) / period)

		path := OutputPath(f.dataDir, item.CatalogID, dayBegin, item.Resource.ID, period, method)
		skip := int64(from.Sub(dayBegin)/period) * 8
		if err := readValues(path, skip, data[offset*8:(offset+n)*8], status[offset:offset+n]); err != nil {
			return err
		}
		offset += n
	}
	return nil
}

// readValues fills data and status from a committed file. A missing file leaves
// status at 0; NaN values are marked bad.
func readValues(path string, skip int64, data, status []byte) error {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		clear(status)
		return nil
	}
	if err != nil {
		return err
	}
	defer file.Close()

	n, err := file.ReadAt(data, skip)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read %s: %w", path, err)
	}
	for i := range status {
		if (i+1)*8 > n {
			status[i] = 0
			continue
		}
		v := math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
		if math.IsNaN(v) {
			status[i] = 0
		} else {
			status[i] = 1
		}
	}
	return nil
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
