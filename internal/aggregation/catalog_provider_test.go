package aggregation

import (
	"context"
	"testing"
	"time"

	coreagg "github.com/aevon-lab/resampler/internal/core/aggregation"
	"github.com/aevon-lab/resampler/internal/core/catalog"
	"github.com/aevon-lab/resampler/internal/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func representationIDs(res catalog.Resource) []string {
	ids := make([]string, 0, len(res.Representations))
	for _, rep := range res.Representations {
		ids = append(ids, rep.ID)
	}
	return ids
}

func TestCatalogProvider_AddsAggregateRepresentations(t *testing.T) {
	src := source.NewMemorySource(memSourceID, []catalog.Catalog{plantCatalog()}, plantSample)
	setups := NewInMemorySetupRepository(
		coreagg.Setup{
			Name:         "minutely",
			Aggregations: []coreagg.Aggregation{minuteAndHour("/plant/a", coreagg.MethodMean, coreagg.MethodMaxBitwise)},
		},
		coreagg.Setup{
			Name: "overlapping",
			Aggregations: []coreagg.Aggregation{{
				CatalogID: "/plant/a",
				Periods:   []time.Duration{time.Hour, 500 * time.Millisecond},
				Methods:   []coreagg.MethodSpec{{Method: coreagg.MethodMean}},
			}},
		},
	)

	tree, err := NewCatalogProvider(src, setups).GetCatalogTree(context.Background(), "/")
	require.NoError(t, err)
	require.Len(t, tree, 1)

	temp, flags := tree[0].Resources[0], tree[0].Resources[1]
	assert.Equal(t, []string{"1_s", "1_min_mean", "1_h_mean"}, representationIDs(temp))
	assert.Equal(t, []string{"1_s", "1_min_mean", "1_min_max_bitwise", "1_h_mean", "1_h_max_bitwise"}, representationIDs(flags))

	item, ok := tree[0].Find("temp", "1_h_mean")
	require.True(t, ok)
	assert.Equal(t, SourceID, item.Representation.SourceID)
	assert.Equal(t, time.Hour, item.Representation.SamplePeriod)
	assert.Equal(t, catalog.Float64, item.Representation.DataType)

	inner, err := src.GetCatalogTree(context.Background(), "/")
	require.NoError(t, err)
	assert.Len(t, inner[0].Resources[0].Representations, 1, "inner tree must not be mutated")
}

func TestCatalogProvider_ServesCommittedAggregates(t *testing.T) {
	f := newServiceFixture(t)
	setup := hourlyMeanSetup(day0, 1)
	_, err := f.service.Run(context.Background(), setup)
	require.NoError(t, err)

	tree, err := NewCatalogProvider(f.src, NewInMemorySetupRepository(setup)).GetCatalogTree(context.Background(), "/plant")
	require.NoError(t, err)
	item, ok := tree[0].Find("temp", "1_h_mean")
	require.True(t, ok)

	data := make([]byte, 24*8)
	status := make([]byte, 24)
	err = NewFileSource(f.dir).ReadRaw(context.Background(), item, day0, day0.Add(24*time.Hour), data, status)
	require.NoError(t, err)

	values := make([]float64, 24)
	require.NoError(t, catalog.DecodeFloat64(catalog.Float64, data, values))
	for h, v := range values {
		assert.Equal(t, byte(1), status[h])
		assert.InDelta(t, float64(h*3600)+1799.5, v, 1e-9)
	}
}
