package services

import (
	"errors"
	"fmt"
)

var (
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrInvariantViolation = errors.New("invariant violation")
)

func storeError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, operation, err)
}

func invariantError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvariantViolation, fmt.Sprintf(format, args...))
}
