package readpath

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aevon-lab/resampler/internal/cache"
	"github.com/aevon-lab/resampler/internal/catalogtree"
	"github.com/aevon-lab/resampler/internal/core/catalog"
	"github.com/aevon-lab/resampler/internal/core/interval"
	sourcemocks "github.com/aevon-lab/resampler/internal/mocks/source"
	"github.com/aevon-lab/resampler/internal/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func meterCatalog(sourceID string) catalog.Catalog {
	return catalog.Catalog{
		ID: "/site/meter",
		Resources: []catalog.Resource{
			{
				ID:         "power",
				Properties: catalog.Properties{Unit: "W"},
				Representations: []catalog.Representation{
					{ID: "1_s", SamplePeriod: time.Second, DataType: catalog.Int16, SourceID: sourceID},
					{ID: "7_s", SamplePeriod: 7 * time.Second, DataType: catalog.Float64, SourceID: sourceID},
				},
			},
		},
	}
}

// meterSample reports the second of day; every tenth second is bad.
func meterSample(_ catalog.Item, t time.Time) (float64, byte) {
	sec := t.Sub(day0) / time.Second
	if sec%10 == 9 {
		return 0, 0
	}
	return float64(sec), 1
}

func newTestService(t *testing.T, withCache bool) (*Service, *source.MemorySource) {
	t.Helper()
	src := source.NewMemorySource("mem", []catalog.Catalog{meterCatalog("mem")}, meterSample)
	var c *cache.Cache
	if withCache {
		c = cache.New(cache.NewDirStore(t.TempDir()))
	}
	return NewService(catalogtree.NewCache(src), source.NewRegistry(src), c, "/"), src
}

func readReq(rep string, begin, end time.Time) ReadRequest {
	return ReadRequest{
		CatalogID:        "/site/meter",
		ResourceID:       "power",
		RepresentationID: rep,
		Begin:            begin,
		End:              end,
	}
}

func assertMeterValues(t *testing.T, begin time.Time, values []float64) {
	t.Helper()
	for i, v := range values {
		sec := int(begin.Sub(day0)/time.Second) + i
		if sec%10 == 9 {
			assert.True(t, math.IsNaN(v), "sample %d should be NaN", sec)
		} else {
			assert.Equal(t, float64(sec), v, "sample %d", sec)
		}
	}
}

func TestService_Read_FillsCacheAndServesHits(t *testing.T) {
	svc, src := newTestService(t, true)
	ctx := context.Background()
	begin, end := day0.Add(time.Hour), day0.Add(time.Hour+time.Minute)

	first, err := svc.Read(ctx, readReq("1_s", begin, end))
	require.NoError(t, err)
	assert.Equal(t, 0, first.CachedSamples)
	assert.Equal(t, "1_s", first.SamplePeriod)
	require.Len(t, first.Values, 60)
	assertMeterValues(t, begin, first.Float64s())
	assert.Equal(t, 1, src.Reads())

	second, err := svc.Read(ctx, readReq("1_s", begin, end))
	require.NoError(t, err)
	assert.Equal(t, 60, second.CachedSamples)
	assertMeterValues(t, begin, second.Float64s())
	assert.Equal(t, 1, src.Reads(), "cached range must not hit the source")
}

func TestService_Read_OnlyReadsGapsFromSource(t *testing.T) {
	svc, src := newTestService(t, true)
	ctx := context.Background()

	_, err := svc.Read(ctx, readReq("1_s", day0.Add(10*time.Second), day0.Add(20*time.Second)))
	require.NoError(t, err)
	require.Equal(t, 1, src.Reads())

	resp, err := svc.Read(ctx, readReq("1_s", day0, day0.Add(30*time.Second)))
	require.NoError(t, err)
	assert.Equal(t, 10, resp.CachedSamples)
	assert.Equal(t, 3, src.Reads(), "one source read per gap")
	assertMeterValues(t, day0, resp.Float64s())
}

func TestService_Read_WithoutCache(t *testing.T) {
	svc, src := newTestService(t, false)
	ctx := context.Background()
	begin, end := day0, day0.Add(20*time.Second)

	for i := 0; i < 2; i++ {
		resp, err := svc.Read(ctx, readReq("1_s", begin, end))
		require.NoError(t, err)
		assert.Equal(t, 0, resp.CachedSamples)
		assertMeterValues(t, begin, resp.Float64s())
	}
	assert.Equal(t, 2, src.Reads())
}

func TestService_Read_UncacheableSamplePeriodFallsBackToSource(t *testing.T) {
	svc, src := newTestService(t, true)
	ctx := context.Background()

	begin := day0.Add(7 * time.Second).Truncate(7 * time.Second)

	for i := 0; i < 2; i++ {
		resp, err := svc.Read(ctx, readReq("7_s", begin, begin.Add(70*time.Second)))
		require.NoError(t, err)
		assert.Equal(t, 0, resp.CachedSamples)
		assert.Len(t, resp.Values, 10)
	}
	assert.Equal(t, 2, src.Reads())
}

func TestService_Read_ValidationErrors(t *testing.T) {
	svc, _ := newTestService(t, true)
	ctx := context.Background()

	tests := []struct {
		name    string
		req     ReadRequest
		wantErr error
	}{
		{
			name:    "empty range",
			req:     readReq("1_s", day0, day0),
			wantErr: ErrInvalidRead,
		},
		{
			name:    "unaligned range",
			req:     readReq("7_s", day0.Add(7*time.Second).Truncate(7*time.Second).Add(time.Second), day0.Add(time.Minute)),
			wantErr: ErrInvalidRead,
		},
		{
			name:    "too many samples",
			req:     readReq("1_s", day0, day0.Add(365*24*time.Hour)),
			wantErr: ErrInvalidRead,
		},
		{
			name: "unknown catalog",
			req: ReadRequest{
				CatalogID: "/nope", ResourceID: "power", RepresentationID: "1_s",
				Begin: day0, End: day0.Add(time.Minute),
			},
			wantErr: ErrNotFound,
		},
		{
			name:    "unknown representation",
			req:     readReq("1_h", day0, day0.Add(time.Hour)),
			wantErr: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Read(ctx, tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestService_Read_SourceErrorIsReturnedAndNothingCached(t *testing.T) {
	provider := source.NewMemorySource("provider", []catalog.Catalog{meterCatalog("flaky")}, meterSample)
	flaky := sourcemocks.NewSource(t)
	flaky.EXPECT().ID().Return("flaky")

	boom := errors.New("backend offline")
	flaky.EXPECT().
		ReadRaw(mock.Anything, mock.Anything, day0, day0.Add(time.Minute), mock.Anything, mock.Anything).
		Return(boom).
		Once()

	store := cache.NewDirStore(t.TempDir())
	svc := NewService(catalogtree.NewCache(provider), source.NewRegistry(flaky), cache.New(store), "")

	_, err := svc.Read(context.Background(), readReq("1_s", day0, day0.Add(time.Minute)))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	key := cache.Key{CatalogID: "/site/meter", ResourceID: "power", RepresentationID: "1_s", FileBegin: day0}
	_, err = store.Open(key, false)
	assert.ErrorIs(t, err, cache.ErrNotCached)
}

func TestService_Read_UnregisteredSource(t *testing.T) {
	provider := source.NewMemorySource("provider", []catalog.Catalog{meterCatalog("missing")}, meterSample)
	svc := NewService(catalogtree.NewCache(provider), source.NewRegistry(provider), nil, "/")

	_, err := svc.Read(context.Background(), readReq("1_s", day0, day0.Add(time.Minute)))
	assert.ErrorIs(t, err, source.ErrUnknownSource)
}

func TestService_Read_Cancelled(t *testing.T) {
	svc, _ := newTestService(t, true)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Read(ctx, readReq("1_s", day0, day0.Add(time.Minute)))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestService_Read_DaysWithoutGoodSamplesAreNotCached(t *testing.T) {
	ctx := context.Background()
	day1 := day0.AddDate(0, 0, 1)
	var published atomic.Bool

	gauge := catalog.Catalog{
		ID: "/site/meter",
		Resources: []catalog.Resource{{
			ID: "power",
			Representations: []catalog.Representation{
				{ID: "1_s", SamplePeriod: time.Second, DataType: catalog.Float64, SourceID: "mem"},
			},
		}},
	}
	src := source.NewMemorySource("mem", []catalog.Catalog{gauge}, func(_ catalog.Item, ts time.Time) (float64, byte) {
		if ts.Before(day1) {
			return 42, 1
		}
		if published.Load() {
			return 7, 1
		}
		return 0, 0
	})
	svc := NewService(catalogtree.NewCache(src), source.NewRegistry(src), cache.New(cache.NewDirStore(t.TempDir())), "/")
	req := readReq("1_s", day1.Add(-time.Minute), day1.Add(time.Minute))

	first, err := svc.Read(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 0, first.CachedSamples)
	assert.Equal(t, 42.0, float64(first.Values[0]))
	assert.True(t, math.IsNaN(float64(first.Values[60])))

	second, err := svc.Read(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 60, second.CachedSamples, "only the day with data is cached")
	assert.Equal(t, 2, src.Reads())

	published.Store(true)
	third, err := svc.Read(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 60, third.CachedSamples)
	assert.Equal(t, 42.0, float64(third.Values[59]))
	assert.Equal(t, 7.0, float64(third.Values[60]))

	fourth, err := svc.Read(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 120, fourth.CachedSamples)
	assert.Equal(t, 3, src.Reads())
}

func TestKnownIntervals(t *testing.T) {
	nan := math.NaN()
	begin := day0.Add(-2 * time.Second)
	values := []float64{1, nan, nan, nan, 5, 6}

	tests := []struct {
		name     string
		gaps     []interval.Interval
		expected []interval.Interval
	}{
		{
			name:     "isolated bad samples stay cacheable",
			gaps:     []interval.Interval{interval.New(begin, begin.Add(2*time.Second))},
			expected: []interval.Interval{interval.New(begin, begin.Add(2*time.Second))},
		},
		{
			name:     "day without a good sample is dropped",
			gaps:     []interval.Interval{interval.New(day0, day0.Add(2*time.Second))},
			expected: nil,
		},
		{
			name:     "gap across midnight keeps the day with data",
			gaps:     []interval.Interval{interval.New(begin, day0.Add(time.Second))},
			expected: []interval.Interval{interval.New(begin, day0)},
		},
		{
			name:     "no gaps",
			gaps:     nil,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, knownIntervals(tt.gaps, begin, time.Second, values))
		})
	}
}
