package models

import "errors"

var (
	// ErrNotFound is returned when a task, step, comment or notification id does not resolve.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the acting user may not perform the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrValidation is returned for missing or malformed input.
	ErrValidation = errors.New("validation failed")
)
