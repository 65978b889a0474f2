package bookings

import (
	"time"

	"github.com/google/uuid"
)

// BookingResponse is the read representation of a booking.
type BookingResponse struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	SlotID         uuid.UUID  `json:"slot_id"`
	GroupSize      int        `json:"group_size"`
	Status         Status     `json:"status"`
	AmountBlocked  int64      `json:"amount_blocked"`
	PaidWithPoints bool       `json:"paid_with_points"`
	PointsUsed     int64      `json:"points_used"`
	IsRecycled     bool       `json:"is_recycled"`
	GaveBack       bool       `json:"gave_back"`
	CancelReason   string     `json:"cancel_reason,omitempty"`
	CancelledAt    *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func ToBookingResponse(b *Booking) BookingResponse {
	return BookingResponse{
		ID:             b.ID,
		UserID:         b.UserID,
		SlotID:         b.SlotID,
		GroupSize:      b.GroupSize,
		Status:         b.Status,
		AmountBlocked:  b.AmountBlocked,
		PaidWithPoints: b.PaidWithPoints,
		PointsUsed:     b.PointsUsed,
		IsRecycled:     b.IsRecycled,
		GaveBack:       b.GaveBack,
		CancelReason:   b.CancelReason,
		CancelledAt:    b.CancelledAt,
		CreatedAt:      b.CreatedAt,
	}
}

func ToBookingResponses(list []Booking) []BookingResponse {
	out := make([]BookingResponse, 0, len(list))
	for i := range list {
		out = append(out, ToBookingResponse(&list[i]))
	}
	return out
}
