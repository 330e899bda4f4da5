package hampel

import (
	"fmt"
	"math"
	"reflect"
	"sort"
)

const (
	// DefaultWindowSize is the number of samples in a window.
	DefaultWindowSize = 5
	// DefaultNSigma is the outlier threshold in scale units.
	DefaultNSigma = 3.0
	// DefaultConsistency makes the MAD a consistent estimator of the
	// standard deviation for normally distributed data (1/Φ⁻¹(3/4)).
	DefaultConsistency = 1.4826
)

// Params are the Hampel identifier parameters.
type Params struct {
	WindowSize int     // odd, >= 1
	NSigma     float64 // >= 0
	C          float64 // consistency constant, > 0
}

// DefaultParams returns window size 5, n_sigma 3 and c 1.4826.
func DefaultParams() Params {
	return Params{
		WindowSize: DefaultWindowSize,
		NSigma:     DefaultNSigma,
		C:          DefaultConsistency,
	}
}

// HalfWidth returns the number of neighbors on each side of a window center.
func (p Params) HalfWidth() int {
	return (p.WindowSize - 1) / 2
}

// Validate checks the parameters, the returned error wraps ErrInvalidParameter.
func (p Params) Validate() error {
	if p.WindowSize <= 0 || p.WindowSize%2 != 1 {
		return fmt.Errorf("%w: window_size must be a positive odd integer, got %d", ErrInvalidParameter, p.WindowSize)
	}

	if math.IsNaN(p.NSigma) || math.IsInf(p.NSigma, 0) || p.NSigma < 0 {
		return fmt.Errorf("%w: n_sigma must be a non-negative number, got %v", ErrInvalidParameter, p.NSigma)
	}

	if math.IsNaN(p.C) || math.IsInf(p.C, 0) || p.C <= 0 {
		return fmt.Errorf("%w: c must be a finite positive number, got %v", ErrInvalidParameter, p.C)
	}

	return nil
}

// ParseParams builds Params from loosely typed values, e.g. decoded JSON or
// keyword arguments. Missing keys keep their default.
//
// Types are checked nominally: window_size must hold a Go integer, so 3.0 is
// rejected even though it is a whole number. n_sigma and c accept any integer
// or float type.
func ParseParams(m map[string]any) (Params, error) {
	p := DefaultParams()

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys) // stable error messages

	for _, key := range keys {
		v := m[key]
		switch key {
		case "window_size":
			n, ok := asInt(v)
			if !ok {
				return Params{}, fmt.Errorf("%w: window_size must be an integer, got %T", ErrInvalidParameter, v)
			}
			p.WindowSize = n
		case "n_sigma":
			f, ok := asFloat(v)
			if !ok {
				return Params{}, fmt.Errorf("%w: n_sigma must be a number, got %T", ErrInvalidParameter, v)
			}
			p.NSigma = f
		case "c":
			f, ok := asFloat(v)
			if !ok {
				return Params{}, fmt.Errorf("%w: c must be a number, got %T", ErrInvalidParameter, v)
			}
			p.C = f
		default:
			return Params{}, fmt.Errorf("%w: unknown parameter %q", ErrInvalidParameter, key)
		}
	}

	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

func asInt(v any) (int, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt32 {
			return 0, false
		}
		return int(u), true
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}
