package aggregation

import (
	"context"
	"log/slog"

	"github.com/aevon-lab/resampler/internal/core/aggregation"
	"github.com/aevon-lab/resampler/internal/core/catalog"
	"github.com/aevon-lab/resampler/internal/source"
)

// CatalogProvider decorates a backend catalog provider: every (period, method) that a
// configured setup produces for a resource is added to that resource as a
// representation served by the FileSource.
type CatalogProvider struct {
	inner  source.CatalogProvider
	setups aggregation.SetupRepository
}

// NewCatalogProvider wraps inner with the aggregate representations of setups.
func NewCatalogProvider(inner source.CatalogProvider, setups aggregation.SetupRepository) *CatalogProvider {
	return &CatalogProvider{inner: inner, setups: setups}
}

func (p *CatalogProvider) GetCatalogTree(ctx context.Context, scopePath string) ([]catalog.Catalog, error) {
	tree, err := p.inner.GetCatalogTree(ctx, scopePath)
	if err != nil {
		return nil, err
	}

	out := cloneTree(tree)
	index := make(map[string]map[string]*catalog.Resource, len(out))
	for i := range out {
		resources := make(map[string]*catalog.Resource, len(out[i].Resources))
		for j := range out[i].Resources {
			resources[out[i].Resources[j].ID] = &out[i].Resources[j]
		}
		index[out[i].ID] = resources
	}

	for _, setup := range p.setups.GetSetups() {
		instructions, err := Plan(setup, tree)
		if err != nil {
			slog.Warn("[Catalog] Skip setup with invalid filters", "setup", setup.Name, "error", err)
			continue
		}
		for _, inst := range instructions {
			for _, sourceID := range inst.SourceOrder {
				for _, ra := range inst.Sources[sourceID] {
					res := index[inst.CatalogID][ra.Resource.ID]
					if res == nil {
						continue
					}
					addAggregates(res, ra)
				}
			}
		}
	}
	return out, nil
}

func addAggregates(res *catalog.Resource, ra ResourceAggregations) {
	rep := ra.Representation
	for _, agg := range ra.Aggregations {
		for _, period := range agg.Periods {
			if !periodFits(period, rep.SamplePeriod) {
				continue
			}
			for _, spec := range agg.Methods {
				if spec.Method.IsBitwise() && !rep.DataType.IsInteger() {
					continue
				}
				derived := RepresentationFor(period, spec.Method)
				if !hasRepresentation(*res, derived.ID) {
					res.Representations = append(res.Representations, derived)
				}
			}
		}
	}
}

func hasRepresentation(res catalog.Resource, id string) bool {
	for _, rep := range res.Representations {
		if rep.ID == id {
			return true
		}
	}
	return false
}

// cloneTree copies the resource and representation slices so the inner provider's
// tree is never mutated.
func cloneTree(tree []catalog.Catalog) []catalog.Catalog {
	out := make([]catalog.Catalog, len(tree))
	for i, c := range tree {
		out[i] = catalog.Catalog{ID: c.ID, Resources: make([]catalog.Resource, len(c.Resources))}
		for j, res := range c.Resources {
			res.Representations = append([]catalog.Representation(nil), res.Representations...)
			out[i].Resources[j] = res
		}
	}
	return out
}
