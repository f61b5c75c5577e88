package source

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aevon-lab/resampler/internal/core/catalog"
)

// ErrUnknownSource is returned when a representation references an unregistered source.
var ErrUnknownSource = errors.New("unknown backend source")

// Source is a backend that serves raw samples.
type Source interface {
	// ID is the identifier representations use to reference this source.
	ID() string

	// IsDataAvailable reports whether the source has any data for the catalog on the
	// given (midnight UTC) day.
	IsDataAvailable(ctx context.Context, catalogID string, day time.Time) (bool, error)

	// ReadRaw fills data with little-endian raw samples of item for [begin, end) and
	// status with one quality byte per sample (1 = good). Both buffers are sized by the
	// caller: len(status) samples, len(data) = len(status) * element size.
	ReadRaw(ctx context.Context, item catalog.Item, begin, end time.Time, data, status []byte) error
}

// CatalogProvider enumerates the catalog tree below a scope path.
// The order of catalogs and resources is the enumeration order.
type CatalogProvider interface {
	GetCatalogTree(ctx context.Context, scopePath string) ([]catalog.Catalog, error)
}

// Registry maps source ids to implementations.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]Source
}

// NewRegistry creates a registry holding the given sources.
func NewRegistry(sources ...Source) *Registry {
	r := &Registry{sources: make(map[string]Source)}
	for _, s := range sources {
		r.Register(s)
	}
	return r
}

// Register adds or replaces a source.
func (r *Registry) Register(s Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[s.ID()] = s
}

// Get returns the source registered under id.
func (r *Registry) Get(id string) (Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sources[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, id)
	}
	return s, nil
}
