package aggregation

import "time"

// Method identifies an aggregation statistic. The string values are part of the
// output file name contract and must not change.
type Method string

const (
	MethodMean          Method = "mean"
	MethodMeanPolar     Method = "mean_polar"
	MethodMin           Method = "min"
	MethodMax           Method = "max"
	MethodStd           Method = "std"
	MethodRms           Method = "rms"
	MethodMinBitwise    Method = "min_bitwise"
	MethodMaxBitwise    Method = "max_bitwise"
	MethodSampleAndHold Method = "sample_and_hold"
	MethodSum           Method = "sum"
)

// DefaultQualityThreshold is the minimum fraction of good samples a bucket needs.
const DefaultQualityThreshold = 0.99

// IsBitwise reports whether the method operates on raw integer samples.
func (m Method) IsBitwise() bool {
	return m == MethodMinBitwise || m == MethodMaxBitwise
}

// MethodSpec is one configured method with its optional argument.
// Only mean_polar takes an argument: the circle circumference, e.g. "360" or "2*PI".
type MethodSpec struct {
	Method   Method `yaml:"method"`
	Argument string `yaml:"argument"`
}

// Filters restricts the resources an aggregation applies to.
// Empty patterns match everything (include) or nothing (exclude).
type Filters struct {
	IncludeResource string `yaml:"include_resource"`
	ExcludeResource string `yaml:"exclude_resource"`
	IncludeGroup    string `yaml:"include_group"`
	ExcludeGroup    string `yaml:"exclude_group"`
	IncludeUnit     string `yaml:"include_unit"`
	ExcludeUnit     string `yaml:"exclude_unit"`
}

// Aggregation is one entry of a setup: which catalog, which resources, which statistics.
type Aggregation struct {
	CatalogID string
	Filters   Filters
	Periods   []time.Duration
	Methods   []MethodSpec
}

// Setup describes one aggregation run. Begin and End are midnight-aligned UTC dates;
// they may be left zero in setup files and filled in by the scheduler.
type Setup struct {
	Name         string
	Begin        time.Time
	End          time.Time
	Force        bool
	Aggregations []Aggregation
	Fingerprint  string // SHA-256 of the raw YAML file; empty for programmatic setups
}
