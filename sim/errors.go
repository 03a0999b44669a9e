package sim

import "errors"

var (
	// ErrUnknownPolicy is returned when a scheduling policy name is not recognized.
	ErrUnknownPolicy = errors.New("unknown scheduling policy")
	// ErrInvalidConfig is returned for negative or otherwise unusable configuration values.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrInvalidRequest is returned when a submitted request violates its invariants.
	ErrInvalidRequest = errors.New("invalid request")
)
