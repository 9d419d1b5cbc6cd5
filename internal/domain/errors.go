package domain

import (
	"errors"
	"fmt"
)

// Error categories. Every expected failure returned by the services wraps
// exactly one of these, so callers can branch with errors.Is.
var (
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
	ErrInvalidTransition    = errors.New("invalid transition")
	ErrInsufficientResource = errors.New("insufficient resource")
	ErrValidation           = errors.New("validation error")
)

var (
	// ErrParentNotFound indicates a parent index that names no live item in the plan.
	ErrParentNotFound = fmt.Errorf("parent item %w", ErrNotFound)

	// ErrLeaseNotFound indicates no live edit lease exists for the plan.
	ErrLeaseNotFound = fmt.Errorf("edit lease %w", ErrNotFound)

	ErrDuplicateIndex    = fmt.Errorf("%w: index already used by a live item", ErrConflict)
	ErrDuplicateWorkCode = fmt.Errorf("%w: work code already used by a live item", ErrConflict)
	ErrDuplicateCode     = fmt.Errorf("%w: request code already used by a live request", ErrConflict)
	ErrHasLiveChildren   = fmt.Errorf("%w: item has live children", ErrConflict)

	// ErrLockHeld indicates another actor holds a live lease on the plan.
	ErrLockHeld = fmt.Errorf("%w: plan is locked by another actor", ErrConflict)

	// ErrNotHolder indicates the caller does not hold a live lease on the plan.
	ErrNotHolder = fmt.Errorf("%w: caller does not hold the plan lease", ErrConflict)
)

// Validationf builds an ErrValidation-wrapped error with a formatted message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Transitionf builds an ErrInvalidTransition-wrapped error with a formatted message.
func Transitionf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidTransition, fmt.Sprintf(format, args...))
}
