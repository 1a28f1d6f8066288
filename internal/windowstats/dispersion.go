package windowstats

import "math"

// deviationSums returns, per index, the sum of squared deviations of the
// effective window from its mean. Means come from SMA.
func deviationSums[T Number](values []T, period int) ([]float64, error) {
	means, err := SMA(values, period)
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(values))
	for i := range values {
		lo, hi := Bounds(i, period)
		var acc float64
		for _, v := range values[lo:hi] {
			d := float64(v) - means[i]
			acc += d * d
		}
		out[i] = acc
	}
	return out, nil
}

func variance[T Number](values []T, period int, population bool) ([]float64, error) {
	sums, err := deviationSums(values, period)
	if err != nil {
		return nil, err
	}

	for i := range sums {
		n := float64(Size(i, period))
		switch {
		case population:
			sums[i] /= n
		case n > 1:
			sums[i] /= n - 1
		default:
			// A single point has no sample spread.
			sums[i] = 0
		}
	}
	return sums, nil
}

// VarP returns the population variance of each effective window.
func VarP[T Number](values []T, period int) ([]float64, error) {
	return variance(values, period, true)
}

// Var returns the sample variance of each effective window. A window holding
// a single point yields 0.
func Var[T Number](values []T, period int) ([]float64, error) {
	return variance(values, period, false)
}

// StdP returns the population standard deviation of each effective window.
func StdP[T Number](values []T, period int) ([]float64, error) {
	return sqrtAll(VarP(values, period))
}

// Std returns the sample standard deviation of each effective window.
func Std[T Number](values []T, period int) ([]float64, error) {
	return sqrtAll(Var(values, period))
}

func sqrtAll(vs []float64, err error) ([]float64, error) {
	if err != nil {
		return nil, err
	}
	for i, v := range vs {
		vs[i] = math.Sqrt(v)
	}
	return vs, nil
}

// PowerSumAverage returns the mean of the squared values of each effective
// window.
func PowerSumAverage[T Number](values []T, period int) ([]float64, error) {
	squares := make([]float64, len(values))
	for i, v := range values {
		squares[i] = float64(v) * float64(v)
	}
	return SMA(squares, period)
}
