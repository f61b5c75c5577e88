package catalogtree

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aevon-lab/resampler/internal/core/catalog"
	"github.com/aevon-lab/resampler/internal/source"
	"golang.org/x/sync/singleflight"
)

// Cache holds catalog trees per scope path. Concurrent loads of the same scope are
// collapsed into one provider call; Invalidate forces the next lookup to reload.
type Cache struct {
	provider source.CatalogProvider

	mu        sync.RWMutex
	trees     map[string][]catalog.Catalog
	loadGroup singleflight.Group
}

// NewCache creates an empty catalog cache in front of provider.
func NewCache(provider source.CatalogProvider) *Cache {
	return &Cache{
		provider: provider,
		trees:    make(map[string][]catalog.Catalog),
	}
}

// Get returns the catalog tree below scopePath, loading it on first use.
func (c *Cache) Get(ctx context.Context, scopePath string) ([]catalog.Catalog, error) {
	c.mu.RLock()
	if tree, ok := c.trees[scopePath]; ok {
		c.mu.RUnlock()
		return tree, nil
	}
	c.mu.RUnlock()

	result, err, shared := c.loadGroup.Do(scopePath, func() (interface{}, error) {
		// Double-check cache after acquiring singleflight lock
		c.mu.RLock()
		if tree, ok := c.trees[scopePath]; ok {
			c.mu.RUnlock()
			return tree, nil
		}
		c.mu.RUnlock()

		tree, err := c.provider.GetCatalogTree(ctx, scopePath)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.trees[scopePath] = tree
		c.mu.Unlock()

		slog.Info("[Catalog] Loaded catalog tree", "scope", scopePath, "catalogs", len(tree))
		return tree, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		slog.Debug("[Catalog] Shared in-flight catalog load", "scope", scopePath)
	}
	return result.([]catalog.Catalog), nil
}

// Find looks up one catalog by id within scopePath.
func (c *Cache) Find(ctx context.Context, scopePath, catalogID string) (catalog.Catalog, bool, error) {
	tree, err := c.Get(ctx, scopePath)
	if err != nil {
		return catalog.Catalog{}, false, err
	}
	for _, cat := range tree {
		if cat.ID == catalogID {
			return cat, true, nil
		}
	}
	return catalog.Catalog{}, false, nil
}

// Invalidate drops the cached tree of one scope, or every scope when scopePath is empty.
func (c *Cache) Invalidate(scopePath string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if scopePath == "" {
		c.trees = make(map[string][]catalog.Catalog)
		return
	}
	delete(c.trees, scopePath)
}
