package hampel

import (
	"errors"
)

var (
	// ErrInvalidInput is returned when the series is not one of the
	// recognized kinds.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidParameter is returned for a bad window size, n_sigma or
	// consistency constant.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrNotReady is returned by Filter accessors before Apply.
	ErrNotReady = errors.New("not ready")
)
