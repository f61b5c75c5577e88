package aggregation

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	coreagg "github.com/aevon-lab/resampler/internal/core/aggregation"
	"github.com/aevon-lab/resampler/internal/core/catalog"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

const memSourceID = "mem"

func perSecond(dt catalog.DataType, sourceID string) []catalog.Representation {
	return []catalog.Representation{{ID: "1_s", SamplePeriod: time.Second, DataType: dt, SourceID: sourceID}}
}

// plantCatalog has a float temperature channel and an integer flag channel.
func plantCatalog() catalog.Catalog {
	return catalog.Catalog{
		ID: "/plant/a",
		Resources: []catalog.Resource{
			{
				ID:              "temp",
				Properties:      catalog.Properties{Groups: []string{"climate"}, Unit: "degC"},
				Representations: perSecond(catalog.Float64, memSourceID),
			},
			{
				ID:              "flags",
				Properties:      catalog.Properties{Groups: []string{"status"}},
				Representations: perSecond(catalog.Uint8, memSourceID),
			},
		},
	}
}

// plantSample yields the second of day for temp and a rotating single bit for flags.
func plantSample(item catalog.Item, t time.Time) (float64, byte) {
	sec := t.Unix() % 86400
	if item.Resource.ID == "flags" {
		return float64(uint8(1) << (sec % 4)), 1
	}
	return float64(sec), 1
}

func minuteAndHour(catalogID string, methods ...coreagg.Method) coreagg.Aggregation {
	specs := make([]coreagg.MethodSpec, 0, len(methods))
	for _, m := range methods {
		specs = append(specs, coreagg.MethodSpec{Method: m})
	}
	return coreagg.Aggregation{
		CatalogID: catalogID,
		Periods:   []time.Duration{time.Minute, time.Hour},
		Methods:   specs,
	}
}

func readOutput(t *testing.T, path string) []float64 {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Zero(t, len(raw)%8)

	values := make([]float64, len(raw)/8)
	for i := range values {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:]))
	}
	return values
}

// listFiles returns every regular file below dir, relative to dir.
func listFiles(t *testing.T, dir string) []string {
	t.Helper()
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			rel, _ := filepath.Rel(dir, path)
			files = append(files, rel)
		}
		return nil
	})
	require.NoError(t, err)
	return files
}

func tempFiles(t *testing.T, dir string) []string {
	t.Helper()
	var tmp []string
	for _, f := range listFiles(t, dir) {
		if strings.HasSuffix(f, ".tmp") {
			tmp = append(tmp, f)
		}
	}
	return tmp
}
