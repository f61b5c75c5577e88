package aggregation

import (
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"strconv"
	"strings"

	"github.com/aevon-lab/resampler/internal/core/catalog"
	"golang.org/x/sync/errgroup"
)

// Kernel reduces the good samples of one bucket to a single value.
// good is never empty when a kernel is called.
type Kernel func(good []float64) float64

// kernelFactories is the registry of float kernels. mean_polar needs its argument to
// build the kernel; every other factory ignores it.
var kernelFactories = map[Method]func(argument string) (Kernel, error){
	MethodMean:          constant(mean),
	MethodMeanPolar:     newMeanPolar,
	MethodMin:           constant(minimum),
	MethodMax:           constant(maximum),
	MethodStd:           constant(stdDev),
	MethodRms:           constant(rms),
	MethodSum:           constant(sum),
	MethodSampleAndHold: constant(func(good []float64) float64 { return good[0] }),
}

// ValidMethod reports whether m is a known method identifier.
func ValidMethod(m Method) bool {
	if m.IsBitwise() {
		return true
	}
	_, ok := kernelFactories[m]
	return ok
}

// Apply reduces data in buckets of kernelSize samples and writes one value per bucket to
// result. Buckets whose good-sample fraction is below threshold produce NaN.
// Unknown methods are logged and leave result untouched.
func Apply(method Method, argument string, kernelSize int, data []float64, status []byte, threshold float64, result []float64) error {
	if method.IsBitwise() {
		return fmt.Errorf("method %q requires integer samples", method)
	}
	factory, ok := kernelFactories[method]
	if !ok {
		slog.Warn("[Aggregator] Skip unknown aggregation method", "method", method)
		return nil
	}
	kernel, err := factory(argument)
	if err != nil {
		return err
	}
	if err := checkShape(kernelSize, len(data), len(status), len(result)); err != nil {
		return err
	}

	return forEachBucketRange(len(result), func(from, to int) {
		good := make([]float64, 0, kernelSize)
		for b := from; b < to; b++ {
			good = good[:0]
			offset := b * kernelSize
			for i := offset; i < offset+kernelSize; i++ {
				if status[i] == 1 {
					good = append(good, data[i])
				}
			}
			if !enoughGood(len(good), kernelSize, threshold) {
				result[b] = math.NaN()
				continue
			}
			result[b] = kernel(good)
		}
	})
}

// ApplyBitwise is Apply for min_bitwise (AND) and max_bitwise (OR) over integer samples.
func ApplyBitwise[T catalog.Integer](method Method, kernelSize int, data []T, status []byte, threshold float64, result []float64) error {
	if !method.IsBitwise() {
		return fmt.Errorf("method %q is not a bitwise method", method)
	}
	if err := checkShape(kernelSize, len(data), len(status), len(result)); err != nil {
		return err
	}

	return forEachBucketRange(len(result), func(from, to int) {
		for b := from; b < to; b++ {
			var acc T
			goodCount := 0
			offset := b * kernelSize
			for i := offset; i < offset+kernelSize; i++ {
				if status[i] != 1 {
					continue
				}
				switch {
				case goodCount == 0:
					acc |= data[i]
				case method == MethodMinBitwise:
					acc &= data[i]
				default:
					acc |= data[i]
				}
				goodCount++
			}
			if !enoughGood(goodCount, kernelSize, threshold) {
				result[b] = math.NaN()
				continue
			}
			result[b] = float64(acc)
		}
	})
}

func checkShape(kernelSize, dataLen, statusLen, resultLen int) error {
	if kernelSize <= 0 {
		return fmt.Errorf("kernel size must be > 0, got %d", kernelSize)
	}
	if statusLen != dataLen {
		return fmt.Errorf("status length %d does not match data length %d", statusLen, dataLen)
	}
	if dataLen != kernelSize*resultLen {
		return fmt.Errorf("data length %d is not %d buckets of %d samples", dataLen, resultLen, kernelSize)
	}
	return nil
}

func enoughGood(goodCount, kernelSize int, threshold float64) bool {
	if goodCount == 0 {
		return false
	}
	return float64(goodCount)/float64(kernelSize) >= threshold
}

// forEachBucketRange splits [0, buckets) into contiguous ranges, one per worker.
// Buckets share no state, so ranges run fully in parallel.
func forEachBucketRange(buckets int, fn func(from, to int)) error {
	workers := runtime.GOMAXPROCS(0)
	if workers > buckets {
		workers = buckets
	}
	if workers <= 1 {
		fn(0, buckets)
		return nil
	}

	var g errgroup.Group
	step := (buckets + workers - 1) / workers
	for from := 0; from < buckets; from += step {
		from, to := from, min(from+step, buckets)
		g.Go(func() error {
			fn(from, to)
			return nil
		})
	}
	return g.Wait()
}

func constant(k Kernel) func(string) (Kernel, error) {
	return func(string) (Kernel, error) { return k, nil }
}

func sum(good []float64) float64 {
	var s float64
	for _, v := range good {
		s += v
	}
	return s
}

func mean(good []float64) float64 {
	return sum(good) / float64(len(good))
}

func minimum(good []float64) float64 {
	m := good[0]
	for _, v := range good[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maximum(good []float64) float64 {
	m := good[0]
	for _, v := range good[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// stdDev is the sample standard deviation; fewer than two samples yield NaN.
func stdDev(good []float64) float64 {
	if len(good) < 2 {
		return math.NaN()
	}
	avg := mean(good)
	var sq float64
	for _, v := range good {
		d := v - avg
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(good)-1))
}

func rms(good []float64) float64 {
	var sq float64
	for _, v := range good {
		sq += v * v
	}
	return math.Sqrt(sq / float64(len(good)))
}

func newMeanPolar(argument string) (Kernel, error) {
	limit, err := ParsePolarLimit(argument)
	if err != nil {
		return nil, err
	}
	factor := 2 * math.Pi / limit

	return func(good []float64) float64 {
		var sumSin, sumCos float64
		for _, v := range good {
			sumSin += math.Sin(v * factor)
			sumCos += math.Cos(v * factor)
		}
		result := math.Mod(math.Atan2(sumSin, sumCos)/factor, limit)
		if result < 0 {
			result += limit
		}
		if result >= limit {
			result -= limit
		}
		return result
	}, nil
}

// ParsePolarLimit parses a mean_polar argument: a positive number or "<n>*PI".
func ParsePolarLimit(argument string) (float64, error) {
	s := strings.ReplaceAll(strings.TrimSpace(argument), " ", "")
	if s == "" {
		return 0, fmt.Errorf("mean_polar requires an argument (e.g. 360 or 2*PI)")
	}

	factor := 1.0
	if upper := strings.ToUpper(s); strings.HasSuffix(upper, "PI") {
		factor = math.Pi
		s = strings.TrimSuffix(strings.TrimSuffix(s[:len(s)-2], "*"), "*")
		if s == "" {
			s = "1"
		}
	}

	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid mean_polar argument %q: %w", argument, err)
	}
	limit := n * factor
	if limit <= 0 || math.IsInf(limit, 0) || math.IsNaN(limit) {
		return 0, fmt.Errorf("mean_polar argument %q must be a positive limit", argument)
	}
	return limit, nil
}
