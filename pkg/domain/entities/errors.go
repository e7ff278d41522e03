package entities

import "errors"

// Error classes reported by allocation operations. Callers wrap these with
// context and classify them with errors.Is.
var (
	ErrInvalidRequest  = errors.New("invalid request")
	ErrNotFound        = errors.New("not found")
	ErrInvalidValue    = errors.New("invalid value")
	ErrDataUnavailable = errors.New("data unavailable")
	ErrPersistFailure  = errors.New("persist failure")
)
