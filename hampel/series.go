package hampel

import (
	"fmt"
)

// Kind is the kind of a Series.
type Kind int

// Recognized series kinds.
const (
	KindList Kind = iota + 1
	KindArray
	KindLabeled
)

func (k Kind) String() string {
	switch k {
	case KindList:
		return "list"
	case KindArray:
		return "array"
	case KindLabeled:
		return "labeled"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Series is a one dimensional sequence of samples. It is implemented only by
// List, Array and Labeled.
type Series interface {
	Kind() Kind
	Len() int

	// values returns a float64 copy of the samples.
	values() []float64
	// project maps outlier positions to what the caller gets back.
	project(positions []int) any
	check() error
}

// List is a plain ordered list of samples. Outliers are reported as positions.
type List []float64

// Kind returns KindList.
func (List) Kind() Kind { return KindList }

// Len returns the number of samples.
func (l List) Len() int { return len(l) }

func (l List) values() []float64 {
	return append([]float64(nil), l...)
}

func (List) project(positions []int) any { return positions }

func (List) check() error { return nil }

// Number is the set of element types of an Array.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Array is a flat numeric array. Samples are converted to float64 before
// computing, outliers are reported as positions.
type Array[T Number] []T

// Kind returns KindArray.
func (Array[T]) Kind() Kind { return KindArray }

// Len returns the number of samples.
func (a Array[T]) Len() int { return len(a) }

func (a Array[T]) values() []float64 {
	out := make([]float64, len(a))
	for i, v := range a {
		out[i] = float64(v)
	}
	return out
}

func (Array[T]) project(positions []int) any { return positions }

func (Array[T]) check() error { return nil }

// Labeled is a series with an external label per sample (e.g. a timestamp).
// Labels never take part in the computation, outliers are reported with
// their labels.
type Labeled[L any] struct {
	Index  []L
	Values []float64
}

// Kind returns KindLabeled.
func (Labeled[L]) Kind() Kind { return KindLabeled }

// Len returns the number of samples.
func (s Labeled[L]) Len() int { return len(s.Values) }

// LabelsAt returns the labels at positions.
func (s Labeled[L]) LabelsAt(positions []int) []L {
	labels := make([]L, len(positions))
	for i, pos := range positions {
		labels[i] = s.Index[pos]
	}
	return labels
}

func (s Labeled[L]) values() []float64 {
	return append([]float64(nil), s.Values...)
}

func (s Labeled[L]) project(positions []int) any { return s.LabelsAt(positions) }

func (s Labeled[L]) check() error {
	if len(s.Index) != len(s.Values) {
		return fmt.Errorf("%w: %d labels for %d values", ErrInvalidInput, len(s.Index), len(s.Values))
	}
	return nil
}

// FromAny returns the Series for x. Besides the Series kinds it accepts
// []float64, []float32, []int, []int32 and []int64. Any other type, including
// a string, fails with ErrInvalidInput.
func FromAny(x any) (Series, error) {
	switch v := x.(type) {
	case Series:
		return v, nil
	case []float64:
		return List(v), nil
	case []float32:
		return Array[float32](v), nil
	case []int:
		return Array[int](v), nil
	case []int32:
		return Array[int32](v), nil
	case []int64:
		return Array[int64](v), nil
	}

	return nil, fmt.Errorf("%w: unsupported series type %T", ErrInvalidInput, x)
}
