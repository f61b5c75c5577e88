package source

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aevon-lab/resampler/internal/core/catalog"
)

// SampleFunc produces the raw value and status of one sample.
type SampleFunc func(item catalog.Item, t time.Time) (value float64, status byte)

// MemorySource is an in-memory source and catalog provider that generates samples
// from a function. It backs tests and the demo wiring.
type MemorySource struct {
	id       string
	catalogs []catalog.Catalog
	sample   SampleFunc

	mu          sync.Mutex
	unavailable map[string]bool // "catalogID|yyyy-mm-dd"
	reads       int
}

// NewMemorySource creates a source serving catalogs with values from sample.
func NewMemorySource(id string, catalogs []catalog.Catalog, sample SampleFunc) *MemorySource {
	return &MemorySource{
		id:          id,
		catalogs:    catalogs,
		sample:      sample,
		unavailable: make(map[string]bool),
	}
}

// ID implements Source.
func (m *MemorySource) ID() string { return m.id }

// SetUnavailable marks a catalog day as having no data.
func (m *MemorySource) SetUnavailable(catalogID string, day time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unavailable[catalogID+"|"+day.UTC().Format(time.DateOnly)] = true
}

// Reads returns the number of ReadRaw calls served so far.
func (m *MemorySource) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// IsDataAvailable implements Source.
func (m *MemorySource) IsDataAvailable(ctx context.Context, catalogID string, day time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.unavailable[catalogID+"|"+day.UTC().Format(time.DateOnly)], nil
}

// ReadRaw implements Source.
func (m *MemorySource) ReadRaw(ctx context.Context, item catalog.Item, begin, end time.Time, data, status []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.reads++
	m.mu.Unlock()

	rep := item.Representation
	count := int(end.Sub(begin) / rep.SamplePeriod)
	if len(status) != count || len(data) != count*rep.ElementSize() {
		return fmt.Errorf("buffer size mismatch for %d samples of %s", count, rep.DataType)
	}

	for i := 0; i < count; i++ {
		value, st := m.sample(item, begin.Add(time.Duration(i)*rep.SamplePeriod))
		if err := catalog.EncodeValue(rep.DataType, value, data[i*rep.ElementSize():]); err != nil {
			return err
		}
		status[i] = st
	}
	return nil
}

// GetCatalogTree implements CatalogProvider. The scope path selects catalogs whose id
// starts with it; "/" or "" returns everything.
func (m *MemorySource) GetCatalogTree(ctx context.Context, scopePath string) ([]catalog.Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []catalog.Catalog
	for _, c := range m.catalogs {
		if scopePath == "" || scopePath == "/" || len(c.ID) >= len(scopePath) && c.ID[:len(scopePath)] == scopePath {
			out = append(out, c)
		}
	}
	return out, nil
}
