package hampel

import (
	"fmt"
	"sync"
)

// Filter is a Hampel filter that keeps the statistics of the last series it
// was applied to.
//
// The zero value is not configured, use New. Accessors fail with ErrNotReady
// until Apply succeeds. A Filter is safe for concurrent use.
type Filter struct {
	mu         sync.Mutex
	params     Params
	configured bool
	last       *result // nil until applied
}

// New returns a filter with validated parameters.
func New(p Params) (*Filter, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	f := Filter{
		params:     p,
		configured: true,
	}
	return &f, nil
}

// Params returns the filter parameters.
func (f *Filter) Params() Params {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.params
}

// Apply computes the rolling statistics and outliers of s, replacing the
// result of any previous call. It returns f so calls can be chained.
// On error the previous result is dropped as well.
func (f *Filter) Apply(s Series) (*Filter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.configured {
		return f, fmt.Errorf("%w: filter is not configured", ErrNotReady)
	}

	f.last = nil
	r, err := compute(s, f.params)
	if err != nil {
		return f, err
	}

	f.last = r
	return f, nil
}

// Indices returns the positions of the outliers in the last applied series.
func (f *Filter) Indices() ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.last == nil {
		return nil, notApplied()
	}
	return append([]int{}, f.last.positions...), nil
}

// Outliers returns the outliers of the last applied series the way Apply
// does: positions for a List or Array, labels for a Labeled series.
func (f *Filter) Outliers() (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.last == nil {
		return nil, notApplied()
	}
	positions := append([]int{}, f.last.positions...)
	return f.last.series.project(positions), nil
}

// Boundaries returns the lower and upper detection bounds,
// median ∓ n_sigma*scale. Both have one element per full window, the first
// belongs to position HalfWidth().
func (f *Filter) Boundaries() (lower, upper []float64, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.last == nil {
		return nil, nil, notApplied()
	}

	lower, upper = f.last.stats.Bounds(f.params.NSigma)
	return lower, upper, nil
}

// Stats returns a copy of the rolling median and scale.
func (f *Filter) Stats() (Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.last == nil {
		return Stats{}, notApplied()
	}
	return f.last.stats.clone(), nil
}

func notApplied() error {
	return fmt.Errorf("%w: filter was not applied to a series", ErrNotReady)
}
