// Package windowstats computes sliding-window statistical series.
//
// Every function takes the full input sequence and a window size (period) and
// returns a sequence of the same length, where element i is the statistic of
// the trailing window ending at i. Near the start of the series the window is
// partial: it holds the min(i+1, period) points seen so far.
package windowstats

import (
	"errors"
	"fmt"

	"golang.org/x/exp/constraints"
)

var (
	ErrInvalidPeriod    = errors.New("period must be 1 or greater")
	ErrInvalidTopCount  = errors.New("top count must be 1 or greater")
	ErrInvalidSmoothing = errors.New("smoothing factor outside of 0 to 1 range")
)

// Number is the set of element types accepted as input.
type Number interface {
	constraints.Integer | constraints.Float
}

// Bounds returns the half-open slice bounds [lo, hi) of the effective window
// ending at index i.
func Bounds(i, period int) (lo, hi int) {
	lo = i - period + 1
	if lo < 0 {
		lo = 0
	}
	return lo, i + 1
}

// Size returns the number of points in the effective window ending at i.
func Size(i, period int) int {
	lo, hi := Bounds(i, period)
	return hi - lo
}

func checkPeriod(period int) error {
	if period < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidPeriod, period)
	}
	return nil
}

func checkTop(top int) error {
	if top < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidTopCount, top)
	}
	return nil
}

func toFloats[T Number](values []T) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out
}
