package bookings

import (
	"errors"
	"fmt"
)

var (
	// ErrBookingNotFound is returned when a booking id references nothing.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrConflict is the sentinel behind every business-rule rejection:
	// duplicate variant entry, full variant, same-day or same-instructor
	// clashes. Use errors.Is to detect it.
	ErrConflict = errors.New("booking conflict")
)

// ConflictError carries the human-readable rule that rejected the request.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("booking conflict: %s", e.Reason)
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

func conflictf(format string, args ...interface{}) error {
	return &ConflictError{Reason: fmt.Sprintf(format, args...)}
}
