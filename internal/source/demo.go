package source

import (
	"math"
	"time"

	"github.com/aevon-lab/resampler/internal/core/catalog"
)

// DemoSourceID is the source id of the generated demo station.
const DemoSourceID = "demo"

// DemoCatalogID is the catalog served by NewDemoSource.
const DemoCatalogID = "/demo/station"

func demoRepresentation(dt catalog.DataType) []catalog.Representation {
	return []catalog.Representation{{ID: "1_s", SamplePeriod: time.Second, DataType: dt, SourceID: DemoSourceID}}
}

// NewDemoSource returns a source with one weather station sampled at 1 Hz: a daily
// temperature cycle, a rotating wind direction and a status bit field. Every 997th
// sample is reported bad.
func NewDemoSource() *MemorySource {
	station := catalog.Catalog{
		ID: DemoCatalogID,
		Resources: []catalog.Resource{
			{
				ID:              "temperature",
				Properties:      catalog.Properties{Groups: []string{"climate"}, Unit: "degC"},
				Representations: demoRepresentation(catalog.Float32),
			},
			{
				ID:              "wind_direction",
				Properties:      catalog.Properties{Groups: []string{"climate", "wind"}, Unit: "deg"},
				Representations: demoRepresentation(catalog.Float64),
			},
			{
				ID:              "status",
				Properties:      catalog.Properties{Groups: []string{"diagnostics"}},
				Representations: demoRepresentation(catalog.Uint16),
			},
		},
	}
	return NewMemorySource(DemoSourceID, []catalog.Catalog{station}, demoSample)
}

func demoSample(item catalog.Item, t time.Time) (float64, byte) {
	sec := t.Unix()
	if sec%997 == 0 {
		return 0, 0
	}
	dayFraction := float64(sec%86400) / 86400

	switch item.Resource.ID {
	case "temperature":
		return 12 + 8*math.Sin(2*math.Pi*(dayFraction-0.25)), 1
	case "wind_direction":
		return math.Mod(float64(sec)/60, 360), 1
	default:
		return float64(uint16(1) << (sec / 3600 % 16)), 1
	}
}
