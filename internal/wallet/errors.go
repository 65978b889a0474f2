package wallet

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrInsufficientFunds is the expected rejection path for a booking attempt,
// never a fault. Use errors.Is to detect it.
var ErrInsufficientFunds = errors.New("insufficient funds")

// InsufficientFundsError carries the shortfall detail the caller reports back
// to the player. Amounts are major currency units (whole points when Points
// is true); minor-unit internals convert before building the error.
type InsufficientFundsError struct {
	UserID    uuid.UUID
	Required  int64
	Available int64
	Points    bool
}

func (e *InsufficientFundsError) Missing() int64 {
	return e.Required - e.Available
}

func (e *InsufficientFundsError) Error() string {
	unit := "credit"
	if e.Points {
		unit = "points"
	}
	return fmt.Sprintf("insufficient %s: required %d, available %d, missing %d",
		unit, e.Required, e.Available, e.Missing())
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}
