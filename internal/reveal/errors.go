package reveal

import "errors"

var (
	// ErrInvalidTarget is returned for a negative counter target or a
	// non-positive duration. It is a configuration error and fails registration.
	ErrInvalidTarget = errors.New("invalid counter target")

	// ErrInvalidThreshold is returned when a threshold is outside [0, 1].
	ErrInvalidThreshold = errors.New("threshold must be within [0, 1]")
)
