package windowstats

import (
	"cmp"
	"slices"

	"github.com/gammazero/deque"
)

// Max returns the largest value of each effective window.
func Max[T Number](values []T, period int) ([]T, error) {
	return extreme(values, period, func(a, b T) bool { return a >= b })
}

// Min returns the smallest value of each effective window.
func Min[T Number](values []T, period int) ([]T, error) {
	return extreme(values, period, func(a, b T) bool { return a <= b })
}

// extreme keeps a deque of indices whose values are monotonic under dominates;
// the front is always the answer for the current window.
func extreme[T Number](values []T, period int, dominates func(a, b T) bool) ([]T, error) {
	if err := checkPeriod(period); err != nil {
		return nil, err
	}

	out := make([]T, len(values))
	var idx deque.Deque[int]
	for i, v := range values {
		lo, _ := Bounds(i, period)
		for idx.Len() > 0 && idx.Front() < lo {
			idx.PopFront()
		}
		for idx.Len() > 0 && dominates(v, values[idx.Back()]) {
			idx.PopBack()
		}
		idx.PushBack(i)
		out[i] = values[idx.Front()]
	}
	return out, nil
}

// Top returns, per index, the top largest values of the effective window in
// ascending order. Windows with fewer points return all of them.
func Top[T Number](values []T, period, top int) ([][]T, error) {
	return ranked(values, period, top, func(sorted []T, k int) []T {
		return sorted[len(sorted)-k:]
	})
}

// Bottom returns, per index, the top smallest values of the effective window
// in ascending order. Windows with fewer points return all of them.
func Bottom[T Number](values []T, period, top int) ([][]T, error) {
	return ranked(values, period, top, func(sorted []T, k int) []T {
		return sorted[:k]
	})
}

func ranked[T Number](values []T, period, top int, pick func(sorted []T, k int) []T) ([][]T, error) {
	if err := checkPeriod(period); err != nil {
		return nil, err
	}
	if err := checkTop(top); err != nil {
		return nil, err
	}

	out := make([][]T, len(values))
	var w sortedWindow[T]
	for i, v := range values {
		if i >= period {
			w.remove(values[i-period])
		}
		w.insert(v)
		out[i] = slices.Clone(pick(w.items, min(top, len(w.items))))
	}
	return out, nil
}

// sortedWindow is an ascending multiset of the values in the current window.
type sortedWindow[T cmp.Ordered] struct {
	items []T
}

func (w *sortedWindow[T]) insert(v T) {
	pos, _ := slices.BinarySearch(w.items, v)
	w.items = slices.Insert(w.items, pos, v)
}

func (w *sortedWindow[T]) remove(v T) {
	if pos, ok := slices.BinarySearch(w.items, v); ok {
		w.items = slices.Delete(w.items, pos, pos+1)
	}
}
