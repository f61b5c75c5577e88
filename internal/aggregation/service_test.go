package aggregation

import (
	"context"
	"testing"
	"time"

	"github.com/aevon-lab/resampler/internal/catalogtree"
	coreagg "github.com/aevon-lab/resampler/internal/core/aggregation"
	"github.com/aevon-lab/resampler/internal/core/catalog"
	"github.com/aevon-lab/resampler/internal/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serviceFixture struct {
	dir     string
	src     *source.MemorySource
	runs    *MemoryRunStore
	service *Service
}

func newServiceFixture(t *testing.T, catalogs ...catalog.Catalog) *serviceFixture {
	t.Helper()
	if len(catalogs) == 0 {
		catalogs = []catalog.Catalog{plantCatalog()}
	}
	dir := t.TempDir()
	src := source.NewMemorySource(memSourceID, catalogs, plantSample)
	runs := NewMemoryRunStore()
	service := NewService(catalogtree.NewCache(src), source.NewRegistry(src), runs, Options{
		DataDir:          dir,
		WorkerCount:      2,
		ChunkBytes:       3600 * 8,
		CommitRetries:    1,
		CommitRetryDelay: time.Millisecond,
	})
	return &serviceFixture{dir: dir, src: src, runs: runs, service: service}
}

func hourlyMeanSetup(begin time.Time, days int) coreagg.Setup {
	return coreagg.Setup{
		Name:  "hourly",
		Begin: begin,
		End:   begin.AddDate(0, 0, days),
		Aggregations: []coreagg.Aggregation{{
			CatalogID: "/plant/a",
			Filters:   coreagg.Filters{IncludeResource: "^temp$"},
			Periods:   []time.Duration{time.Hour},
			Methods:   []coreagg.MethodSpec{{Method: coreagg.MethodMean}},
		}},
	}
}

func TestService_RunAggregatesEveryDay(t *testing.T) {
	f := newServiceFixture(t)
	setup := hourlyMeanSetup(day0, 2)

	run, err := f.service.Run(context.Background(), setup)
	require.NoError(t, err)
	assert.Equal(t, RunSucceeded, run.Status)
	assert.Equal(t, 2, run.Committed)

	for _, d := range setup.Days() {
		values := readOutput(t, OutputPath(f.dir, "/plant/a", d, "temp", time.Hour, coreagg.MethodMean))
		require.Len(t, values, 24)
		assert.Equal(t, 1799.5, values[0])
	}

	checkpoint, err := f.runs.ReadCheckpoint(context.Background(), "hourly")
	require.NoError(t, err)
	assert.Equal(t, setup.End, checkpoint)
	assert.Len(t, f.runs.Days(run.ID), 2)
}

func TestService_RejectsUnalignedRange(t *testing.T) {
	f := newServiceFixture(t)
	setup := hourlyMeanSetup(day0.Add(time.Hour), 1)

	_, err := f.service.Run(context.Background(), setup)
	require.ErrorIs(t, err, coreagg.ErrInvalidSetup)

	runs, err := f.runs.ListRuns(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestService_SkipsUnavailableDays(t *testing.T) {
	f := newServiceFixture(t)
	f.src.SetUnavailable("/plant/a", day0)

	run, err := f.service.Run(context.Background(), hourlyMeanSetup(day0, 2))
	require.NoError(t, err)
	assert.Equal(t, 1, run.Committed)
	assert.NoFileExists(t, OutputPath(f.dir, "/plant/a", day0, "temp", time.Hour, coreagg.MethodMean))
	assert.FileExists(t, OutputPath(f.dir, "/plant/a", day0.AddDate(0, 0, 1), "temp", time.Hour, coreagg.MethodMean))
}

func TestService_UnknownSourceIsSkipped(t *testing.T) {
	cat := plantCatalog()
	cat.Resources[0].Representations[0].SourceID = "offline"
	f := newServiceFixture(t, cat)

	run, err := f.service.Run(context.Background(), hourlyMeanSetup(day0, 1))
	require.NoError(t, err)
	assert.Equal(t, RunSucceeded, run.Status)
	assert.Zero(t, run.Committed)

	days := f.runs.Days(run.ID)
	require.Len(t, days, 1)
	assert.Contains(t, days[0].Error, ErrBackendUnavailable.Error())
}

func TestService_SecondRunSkipsExistingOutputs(t *testing.T) {
	f := newServiceFixture(t)
	setup := hourlyMeanSetup(day0, 1)

	_, err := f.service.Run(context.Background(), setup)
	require.NoError(t, err)
	reads := f.src.Reads()

	run, err := f.service.Run(context.Background(), setup)
	require.NoError(t, err)
	assert.Equal(t, 1, run.Skipped)
	assert.Equal(t, reads, f.src.Reads())
}

func TestService_CancelledRun(t *testing.T) {
	f := newServiceFixture(t)
	// Warm the catalog tree so the cancellation hits the day workers.
	_, err := f.service.catalogs.Get(context.Background(), "/")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, err := f.service.Run(ctx, hourlyMeanSetup(day0, 3))
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, RunCancelled, run.Status)
	assert.Empty(t, listFiles(t, f.dir))
}
