package calculator

import "errors"

var (
	// ErrUnknownDuration is returned when a lesson length is not 30, 45 or 60 minutes.
	ErrUnknownDuration = errors.New("duration must be 30, 45 or 60 minutes")
	// ErrUnknownCourse is returned for course keys outside the four offerings.
	ErrUnknownCourse = errors.New("unknown course kind")
	// ErrUnknownActivity is returned for activity keys outside the fixed set.
	ErrUnknownActivity = errors.New("unknown special activity")
	// ErrNegativeValue is returned by Input.Validate when a count, price or policy value is negative.
	ErrNegativeValue = errors.New("counts, prices and policy values must be non-negative")
	// ErrOutOfRange is returned by Input.Validate for activity lengths or lesson counts beyond their limits.
	ErrOutOfRange = errors.New("value beyond its allowed range")
)
