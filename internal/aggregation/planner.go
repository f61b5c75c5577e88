package aggregation

import (
	"fmt"
	"log/slog"

	"github.com/aevon-lab/resampler/internal/core/aggregation"
	"github.com/aevon-lab/resampler/internal/core/catalog"
)

// SourceID identifies the synthetic source that serves committed aggregation files.
// The planner never schedules work for it, so aggregates are not aggregated again.
const SourceID = "aevon.aggregation"

// ResourceAggregations pairs a resource with every aggregation entry that matched it.
type ResourceAggregations struct {
	Resource       catalog.Resource
	Representation catalog.Representation // the raw representation aggregates are computed from
	Aggregations   []aggregation.Aggregation
}

// Instruction is the immutable work description for one catalog.
type Instruction struct {
	CatalogID string

	// SourceOrder lists source ids in the order their resources were first enumerated.
	SourceOrder []string
	Sources     map[string][]ResourceAggregations
}

type compiledAggregation struct {
	agg     aggregation.Aggregation
	filters *aggregation.FilterSet
}

// Plan computes, per target catalog and backend source, which resources need which
// aggregations. Catalogs and resources keep the order of tree.
func Plan(setup aggregation.Setup, tree []catalog.Catalog) ([]Instruction, error) {
	byCatalog := make(map[string][]compiledAggregation)
	for i, agg := range setup.Aggregations {
		filters, err := agg.Filters.Compile()
		if err != nil {
			return nil, fmt.Errorf("%w: aggregations[%d]: %v", aggregation.ErrInvalidSetup, i, err)
		}
		byCatalog[agg.CatalogID] = append(byCatalog[agg.CatalogID], compiledAggregation{agg: agg, filters: filters})
	}

	var instructions []Instruction
	for _, cat := range tree {
		entries, ok := byCatalog[cat.ID]
		if !ok {
			continue
		}

		instr := Instruction{
			CatalogID: cat.ID,
			Sources:   make(map[string][]ResourceAggregations),
		}
		for _, sourceID := range sourcesOf(cat) {
			for _, res := range cat.Resources {
				rep, ok := representationFrom(res, sourceID)
				if !ok {
					continue
				}

				var matched []aggregation.Aggregation
				for _, entry := range entries {
					if entry.filters.Match(res.ID, res.Properties.Groups, res.Properties.Unit) {
						matched = append(matched, entry.agg)
					}
				}
				if len(matched) == 0 {
					continue
				}

				if _, seen := instr.Sources[sourceID]; !seen {
					instr.SourceOrder = append(instr.SourceOrder, sourceID)
				}
				instr.Sources[sourceID] = append(instr.Sources[sourceID], ResourceAggregations{
					Resource:       res,
					Representation: rep,
					Aggregations:   matched,
				})
			}
		}

		if len(instr.SourceOrder) == 0 {
			slog.Info("[Planner] No resources matched", "catalog_id", cat.ID)
			continue
		}
		instructions = append(instructions, instr)
	}

	return instructions, nil
}

// sourcesOf lists the distinct backend sources of a catalog in enumeration order,
// leaving out the synthetic aggregation source.
func sourcesOf(cat catalog.Catalog) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, res := range cat.Resources {
		for _, rep := range res.Representations {
			if rep.SourceID == SourceID || seen[rep.SourceID] {
				continue
			}
			seen[rep.SourceID] = true
			ids = append(ids, rep.SourceID)
		}
	}
	return ids
}

// representationFrom returns the first representation of res served by sourceID.
func representationFrom(res catalog.Resource, sourceID string) (catalog.Representation, bool) {
	for _, rep := range res.Representations {
		if rep.SourceID == sourceID {
			return rep, true
		}
	}
	return catalog.Representation{}, false
}
