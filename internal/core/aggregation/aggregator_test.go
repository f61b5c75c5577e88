package aggregation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func goodStatus(n int) []byte {
	status := make([]byte, n)
	for i := range status {
		status[i] = 1
	}
	return status
}

func TestApply_Methods(t *testing.T) {
	data := []float64{1, 2, 3, 4, -2, 2, 2, 2}
	status := goodStatus(len(data))

	tests := []struct {
		name   string
		method Method
		want   []float64
	}{
		{name: "mean", method: MethodMean, want: []float64{2.5, 1}},
		{name: "min", method: MethodMin, want: []float64{1, -2}},
		{name: "max", method: MethodMax, want: []float64{4, 2}},
		{name: "sum", method: MethodSum, want: []float64{10, 4}},
		{name: "sample and hold", method: MethodSampleAndHold, want: []float64{1, -2}},
		{name: "rms", method: MethodRms, want: []float64{math.Sqrt(30.0 / 4), 2}},
		{name: "std", method: MethodStd, want: []float64{math.Sqrt(5.0 / 3), math.Sqrt(12.0 / 3)}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := make([]float64, 2)
			require.NoError(t, Apply(tc.method, "", 4, data, status, DefaultQualityThreshold, result))
			require.InDeltaSlice(t, tc.want, result, 1e-12)
		})
	}
}

func TestApply_QualityGating(t *testing.T) {
	const kernelSize = 100
	data := make([]float64, kernelSize)
	for i := range data {
		data[i] = 5
	}

	t.Run("99 good samples pass the threshold", func(t *testing.T) {
		status := goodStatus(kernelSize)
		status[0] = 0
		result := []float64{0}
		require.NoError(t, Apply(MethodMean, "", kernelSize, data, status, DefaultQualityThreshold, result))
		assert.Equal(t, 5.0, result[0])
	})

	t.Run("98 good samples produce NaN", func(t *testing.T) {
		status := goodStatus(kernelSize)
		status[0], status[1] = 0, 2
		result := []float64{0}
		require.NoError(t, Apply(MethodMean, "", kernelSize, data, status, DefaultQualityThreshold, result))
		assert.True(t, math.IsNaN(result[0]))
	})

	t.Run("bad samples are excluded from the statistic", func(t *testing.T) {
		values := []float64{1, 100, 3, 5}
		status := []byte{1, 0, 1, 1}
		result := []float64{0}
		require.NoError(t, Apply(MethodMean, "", 4, values, status, 0.5, result))
		assert.Equal(t, 3.0, result[0])
	})
}

func TestApply_ManyBucketsInParallel(t *testing.T) {
	const buckets, kernelSize = 1000, 10
	data := make([]float64, buckets*kernelSize)
	for i := range data {
		data[i] = float64(i / kernelSize)
	}
	result := make([]float64, buckets)

	require.NoError(t, Apply(MethodMax, "", kernelSize, data, goodStatus(len(data)), DefaultQualityThreshold, result))
	for b, v := range result {
		require.Equal(t, float64(b), v)
	}
}

func TestApply_MeanPolarWrapsAround(t *testing.T) {
	result := []float64{-1}
	require.NoError(t, Apply(MethodMeanPolar, "360", 2, []float64{350, 10}, goodStatus(2), DefaultQualityThreshold, result))
	assert.InDelta(t, 0, result[0], 1e-9)

	require.NoError(t, Apply(MethodMeanPolar, "2*PI", 2, []float64{3 * math.Pi / 2, 3 * math.Pi / 2}, goodStatus(2), DefaultQualityThreshold, result))
	assert.InDelta(t, 3*math.Pi/2, result[0], 1e-9)
}

func TestApply_UnknownMethodLeavesResultUnset(t *testing.T) {
	result := []float64{math.NaN()}
	require.NoError(t, Apply(Method("median"), "", 1, []float64{1}, goodStatus(1), DefaultQualityThreshold, result))
	assert.True(t, math.IsNaN(result[0]))
}

func TestApply_RejectsBadShapes(t *testing.T) {
	require.Error(t, Apply(MethodMean, "", 3, []float64{1, 2}, goodStatus(2), DefaultQualityThreshold, []float64{0}))
	require.Error(t, Apply(MethodMean, "", 0, nil, nil, DefaultQualityThreshold, nil))
	require.Error(t, Apply(MethodMinBitwise, "", 1, []float64{1}, goodStatus(1), DefaultQualityThreshold, []float64{0}))
}

func TestApplyBitwise(t *testing.T) {
	data := []uint8{0b1110, 0b0111, 0b1100, 0b0001, 0b0010, 0b0100}
	status := []byte{1, 1, 0, 1, 1, 1}
	result := make([]float64, 2)

	require.NoError(t, ApplyBitwise(MethodMinBitwise, 3, data, status, 0.5, result))
	assert.Equal(t, []float64{0b0110, 0b0000}, result)

	require.NoError(t, ApplyBitwise(MethodMaxBitwise, 3, data, status, 0.5, result))
	assert.Equal(t, []float64{0b1111, 0b0111}, result)

	require.NoError(t, ApplyBitwise(MethodMaxBitwise, 3, data, status, DefaultQualityThreshold, result))
	assert.True(t, math.IsNaN(result[0]))
	assert.Equal(t, float64(0b0111), result[1])

	require.Error(t, ApplyBitwise(MethodMean, 3, data, status, 0.5, result))
}

func TestParsePolarLimit(t *testing.T) {
	tests := []struct {
		input     string
		want      float64
		wantError bool
	}{
		{input: "360", want: 360},
		{input: "2*PI", want: 2 * math.Pi},
		{input: "2 * pi", want: 2 * math.Pi},
		{input: "PI", want: math.Pi},
		{input: "", wantError: true},
		{input: "-1", wantError: true},
		{input: "abc", wantError: true},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParsePolarLimit(tc.input)
			if tc.wantError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.InDelta(t, tc.want, got, 1e-12)
		})
	}
}

func TestValidMethod(t *testing.T) {
	for _, m := range []Method{MethodMean, MethodMeanPolar, MethodMin, MethodMax, MethodStd, MethodRms,
		MethodMinBitwise, MethodMaxBitwise, MethodSampleAndHold, MethodSum} {
		assert.True(t, ValidMethod(m), m)
	}
	assert.False(t, ValidMethod("median"))
}
