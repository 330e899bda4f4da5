package hampel

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
)

// Stats are the rolling statistics of a series.
// Median[j] and Scale[j] belong to the window centered at position j+Offset.
type Stats struct {
	Offset int
	Median []float64
	Scale  []float64
}

// Len returns the number of windows.
func (s Stats) Len() int {
	return len(s.Median)
}

// Bounds returns median ∓ nSigma*scale for every window, aligned like Median.
func (s Stats) Bounds(nSigma float64) (lower, upper []float64) {
	lower = make([]float64, len(s.Median))
	upper = make([]float64, len(s.Median))
	for j, m := range s.Median {
		d := nSigma * s.Scale[j]
		lower[j] = m - d
		upper[j] = m + d
	}
	return lower, upper
}

func (s Stats) clone() Stats {
	return Stats{
		Offset: s.Offset,
		Median: append([]float64(nil), s.Median...),
		Scale:  append([]float64(nil), s.Scale...),
	}
}

// Rolling computes the rolling median and scale of values for every full
// window. values is not modified.
func Rolling(values []float64, p Params) (Stats, error) {
	if err := p.Validate(); err != nil {
		return Stats{}, err
	}

	if len(values) < p.WindowSize {
		return Stats{}, fmt.Errorf("%w: %d samples is less than window_size %d", ErrInvalidParameter, len(values), p.WindowSize)
	}

	return rolling(values, p), nil
}

// rolling expects valid parameters and len(values) >= p.WindowSize.
func rolling(values []float64, p Params) Stats {
	k := p.HalfWidth()
	n := len(values) - 2*k
	s := Stats{
		Offset: k,
		Median: make([]float64, n),
		Scale:  make([]float64, n),
	}

	for i := k; i < len(values)-k; i++ {
		// stats functions sort a copy, window shares values' memory
		window := stats.Float64Data(values[i-k : i+k+1])

		// A missing sample makes the whole window undefined
		if hasNaN(window) {
			s.Median[i-k] = math.NaN()
			s.Scale[i-k] = math.NaN()
			continue
		}

		// Errors are only returned for empty input
		median, _ := stats.Median(window)
		mad, _ := stats.MedianAbsoluteDeviationPopulation(window)

		s.Median[i-k] = median
		s.Scale[i-k] = p.C * mad
	}

	return s
}

func hasNaN(window []float64) bool {
	for _, v := range window {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
