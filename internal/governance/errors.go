package governance

import "errors"

var (
	// ErrInvalidInput marks a caller bug: missing proposal id, non-positive ranking limit,
	// or a configuration that cannot be used. It is never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInsufficientData is returned when every weighted component is unavailable.
	// It is distinct from a low score: the proposal could not be judged at all.
	ErrInsufficientData = errors.New("insufficient data")
)
