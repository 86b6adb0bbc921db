package workflow

import (
	"errors"
	"fmt"

	"taskflow/internal/models"
)

// StoreError wraps a repository failure. Callers may retry the operation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsStoreError reports whether err carries a StoreError.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

// storeErr keeps not-found errors as they are and wraps everything else.
func storeErr(op string, err error) error {
	if errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return &StoreError{Op: op, Err: err}
}
