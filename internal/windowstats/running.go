package windowstats

import "fmt"

// Sum returns the running sum of each effective window.
func Sum[T Number](values []T, period int) ([]T, error) {
	if err := checkPeriod(period); err != nil {
		return nil, err
	}

	out := make([]T, len(values))
	var total T
	for i, v := range values {
		if i >= period {
			total -= values[i-period]
		}
		total += v
		out[i] = total
	}
	return out, nil
}

// SMA returns the simple moving average of each effective window. The divisor
// is the actual window size, so partial windows average what is available.
func SMA[T Number](values []T, period int) ([]float64, error) {
	sums, err := Sum(toFloats(values), period)
	if err != nil {
		return nil, err
	}

	for i := range sums {
		sums[i] /= float64(Size(i, period))
	}
	return sums, nil
}

// EMA returns the exponential moving average with smoothing 2/(period+1),
// seeded with the first value.
func EMA[T Number](values []T, period int) ([]float64, error) {
	if err := checkPeriod(period); err != nil {
		return nil, err
	}
	return smooth(values, 2.0/(float64(period)+1.0)), nil
}

// WWMA returns the Welles Wilder moving average (smoothing 1/period), seeded
// with the first value.
func WWMA[T Number](values []T, period int) ([]float64, error) {
	if err := checkPeriod(period); err != nil {
		return nil, err
	}
	return smooth(values, 1.0/float64(period)), nil
}

// Smooth applies the exponential recurrence with an explicit smoothing factor.
// Values near 0 weigh history more, values near 1 weigh the latest point more.
func Smooth[T Number](values []T, alpha float64) ([]float64, error) {
	if !(alpha >= 0 && alpha <= 1) {
		return nil, fmt.Errorf("%w: got %g", ErrInvalidSmoothing, alpha)
	}
	return smooth(values, alpha), nil
}

func smooth[T Number](values []T, alpha float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		if i == 0 {
			out[i] = float64(v)
			continue
		}
		out[i] = alpha*float64(v) + (1-alpha)*out[i-1]
	}
	return out
}
