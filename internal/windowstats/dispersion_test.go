package windowstats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

func TestVariance(t *testing.T) {
	varp, err := VarP(closes, 3)
	require.NoError(t, err)
	assert.Equal(t,
		[]string{"0.00", "4.00", "4.67", "4.67", "13.56", "29.56", "30.89"},
		formatted(varp))

	sample, err := Var(closes, 3)
	require.NoError(t, err)
	assert.Equal(t,
		[]string{"0.00", "8.00", "7.00", "7.00", "20.33", "44.33", "46.33"},
		formatted(sample))
}

func TestStandardDeviation(t *testing.T) {
	stdp, err := StdP(closes, 3)
	require.NoError(t, err)
	assert.Equal(t,
		[]string{"0.00", "2.00", "2.16", "2.16", "3.68", "5.44", "5.56"},
		formatted(stdp))

	std, err := Std(closes, 3)
	require.NoError(t, err)
	assert.Equal(t,
		[]string{"0.00", "2.83", "2.65", "2.65", "4.51", "6.66", "6.81"},
		formatted(std))
}

func TestVarianceSmallSpread(t *testing.T) {
	values := []float64{32.47, 32.70, 32.77, 33.11, 33.25, 33.23, 33.23}
	varp, err := VarP(values, 3)
	require.NoError(t, err)
	assert.Equal(t,
		[]string{"0.00", "0.01", "0.02", "0.03", "0.04", "0.00", "0.00"},
		formatted(varp))
}

func TestVarianceMatchesGonum(t *testing.T) {
	values := []float64{4.2, -1.5, 7.75, 7.75, 3, 12.5, -6, 0.25, 9, 9, 2.5}
	for _, period := range []int{2, 3, 5, 11, 15} {
		varp, err := VarP(values, period)
		require.NoError(t, err)
		sample, err := Var(values, period)
		require.NoError(t, err)

		for i := range values {
			lo, hi := Bounds(i, period)
			window := values[lo:hi]
			assert.InDelta(t, stat.PopVariance(window, nil), varp[i], 1e-9, "period=%d i=%d", period, i)
			if len(window) > 1 {
				assert.InDelta(t, stat.Variance(window, nil), sample[i], 1e-9, "period=%d i=%d", period, i)
			}
		}
	}
}

func TestSampleVarianceFirstIndexIsZero(t *testing.T) {
	for _, period := range []int{1, 2, 7} {
		sample, err := Var([]float64{42, 40}, period)
		require.NoError(t, err)
		assert.Equal(t, 0.0, sample[0])

		std, err := Std([]float64{42, 40}, period)
		require.NoError(t, err)
		assert.Equal(t, 0.0, std[0])
	}

	// period 1 keeps every window at one point.
	sample, err := Var(closes, 1)
	require.NoError(t, err)
	for _, v := range sample {
		assert.Equal(t, 0.0, v)
	}
}

func TestDispersionInvariants(t *testing.T) {
	values := []float64{1e6 + 0.1, 1e6 + 0.2, 1e6 + 0.3, 5, 5, 5, -3.5, 1e-3}
	for _, period := range []int{1, 2, 3, 4, 8} {
		varp, err := VarP(values, period)
		require.NoError(t, err)
		sample, err := Var(values, period)
		require.NoError(t, err)
		stdp, err := StdP(values, period)
		require.NoError(t, err)
		std, err := Std(values, period)
		require.NoError(t, err)

		for i := range values {
			assert.GreaterOrEqual(t, varp[i], 0.0)
			assert.GreaterOrEqual(t, sample[i], 0.0)
			assert.Equal(t, math.Sqrt(varp[i]), stdp[i])
			assert.Equal(t, math.Sqrt(sample[i]), std[i])
		}
	}
}

func TestPowerSumAverage(t *testing.T) {
	psa, err := PowerSumAverage(closes, 3)
	require.NoError(t, err)
	assert.Equal(t,
		[]string{"1156.00", "1028.00", "965.67", "965.67", "1147.00", "1075.00", "1098.00"},
		formatted(psa))
}
