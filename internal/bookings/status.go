package bookings

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// IsActive reports whether the booking still counts toward a group-size
// variant (anything not cancelled).
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusConfirmed
}

// CanBeCancelled reports whether a booking with this status can still be
// cancelled. Cancellation is terminal: no transition leaves CANCELLED.
func (s Status) CanBeCancelled() bool {
	return s == StatusPending || s == StatusConfirmed
}
