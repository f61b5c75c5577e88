package aggregation

import (
	"math"
	"net/url"
	"path/filepath"
	"time"

	"github.com/aevon-lab/resampler/internal/core/aggregation"
)

// OutputExtension is the file extension of committed aggregation files.
const OutputExtension = ".f64"

// OutputPath returns the committed file path of one (resource, period, method) aggregate
// for a day: {dataDir}/{escaped catalog id}/{yyyy-MM}/{dd}/{resource}_{period}_{method}.f64
func OutputPath(dataDir, catalogID string, day time.Time, resourceID string, period time.Duration, method aggregation.Method) string {
	day = day.UTC()
	name := resourceID + "_" + aggregation.PeriodString(period) + "_" + string(method) + OutputExtension
	return filepath.Join(dataDir, url.PathEscape(catalogID), day.Format("2006-01"), day.Format("02"), name)
}

// Unit is one aggregation target of a pipeline: a period, a method and the day-sized
// result buffer it fills chunk by chunk.
type Unit struct {
	Period     time.Duration
	Method     aggregation.Method
	Argument   string
	Path       string
	KernelSize int // samples per output value

	buffer []float64
	cursor int
}

func newUnit(period time.Duration, spec aggregation.MethodSpec, samplePeriod time.Duration, path string) *Unit {
	values := int(dayLength / period)
	buffer := make([]float64, values)
	for i := range buffer {
		buffer[i] = math.NaN()
	}
	return &Unit{
		Period:     period,
		Method:     spec.Method,
		Argument:   spec.Argument,
		Path:       path,
		KernelSize: int(period / samplePeriod),
		buffer:     buffer,
	}
}

// next returns the slice of the result buffer covering samples of the next chunk
// and advances the cursor.
func (u *Unit) next(chunkSamples int) []float64 {
	n := chunkSamples / u.KernelSize
	out := u.buffer[u.cursor : u.cursor+n]
	u.cursor += n
	return out
}

// Values returns the result buffer.
func (u *Unit) Values() []float64 { return u.buffer }

// periodFits reports whether period is a whole multiple of samplePeriod that divides a day.
func periodFits(period, samplePeriod time.Duration) bool {
	return period >= samplePeriod && period%samplePeriod == 0 && aggregation.DividesDay(period)
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func lcm(a, b int) int {
	return a / gcd(a, b) * b
}

// chunkSamples picks the streaming chunk size in samples: the largest multiple of the
// LCM of all kernel sizes that divides the day and stays within maxBytes.
// Falls back to the LCM itself when even one LCM block exceeds maxBytes.
func chunkSamples(units []*Unit, daySamples, elementSize, maxBytes int) int {
	base := 1
	for _, u := range units {
		base = lcm(base, u.KernelSize)
	}
	limit := maxBytes / elementSize / base
	for k := limit; k > 1; k-- {
		if daySamples%(base*k) == 0 {
			return base * k
		}
	}
	return base
}
