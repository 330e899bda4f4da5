package hampel

import (
	"fmt"
	"math"
)

// Detect returns the positions of the outliers in s, in ascending order.
func Detect(s Series, p Params) ([]int, error) {
	r, err := compute(s, p)
	if err != nil {
		return nil, err
	}
	return r.positions, nil
}

// DetectLabeled returns the labels of the outliers in s, in ascending
// position order.
func DetectLabeled[L any](s Labeled[L], p Params) ([]L, error) {
	r, err := compute(s, p)
	if err != nil {
		return nil, err
	}
	return s.LabelsAt(r.positions), nil
}

// Apply detects outliers in x, which can be anything FromAny accepts.
// It returns []int positions for lists and arrays and []L labels for a
// Labeled[L].
func Apply(x any, p Params) (any, error) {
	s, err := FromAny(x)
	if err != nil {
		return nil, err
	}

	r, err := compute(s, p)
	if err != nil {
		return nil, err
	}
	return s.project(r.positions), nil
}

type result struct {
	series    Series
	values    []float64
	stats     Stats
	positions []int
}

// compute validates everything before doing any work.
func compute(s Series, p Params) (*result, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil series", ErrInvalidInput)
	}

	if err := s.check(); err != nil {
		return nil, err
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	if s.Len() < p.WindowSize {
		return nil, fmt.Errorf("%w: %d samples is less than window_size %d", ErrInvalidParameter, s.Len(), p.WindowSize)
	}

	values := s.values()
	st := rolling(values, p)
	r := result{
		series:    s,
		values:    values,
		stats:     st,
		positions: outliers(values, st, p),
	}
	return &r, nil
}

// outliers returns the centers where |x - median| >= nSigma * scale.
func outliers(values []float64, st Stats, p Params) []int {
	// A single sample window is always its own median
	if p.WindowSize == 1 {
		return []int{}
	}

	positions := []int{}
	k := st.Offset
	for j, median := range st.Median {
		i := j + k
		if math.Abs(values[i]-median) >= p.NSigma*st.Scale[j] {
			positions = append(positions, i)
		}
	}
	return positions
}
