package bookings

import (
	"time"

	"github.com/google/uuid"
)

// Cancellation reasons recorded on the booking row.
const (
	ReasonLostRace        = "other option won the race"
	ReasonSameDayConflict = "another booking confirmed the same day"
	ReasonUserCancelled   = "cancelled by player"
	ReasonGaveBack        = "spot given back"
)

// Booking is a player's claim on a slot for one group-size variant: the slot
// completes for this claim once GroupSize non-cancelled bookings share the
// same value. At most one non-cancelled booking may exist per
// (user, slot, group size).
type Booking struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	SlotID    uuid.UUID `gorm:"type:uuid;index;not null" json:"slot_id"`
	GroupSize int       `gorm:"not null" json:"group_size"`
	Status    Status    `gorm:"type:varchar(20);index;not null;default:'PENDING'" json:"status"`

	// AmountBlocked is the per-player price in minor units, reserved while
	// pending and charged on confirmation.
	AmountBlocked  int64 `gorm:"not null" json:"amount_blocked"`
	PaidWithPoints bool  `gorm:"not null;default:false" json:"paid_with_points"`
	PointsUsed     int64 `gorm:"not null;default:0" json:"points_used"`

	// IsRecycled marks a booking that claimed a given-back spot on an
	// already-confirmed slot; GaveBack marks a confirmed booking whose spot
	// was voluntarily returned.
	IsRecycled bool `gorm:"not null;default:false" json:"is_recycled"`
	GaveBack   bool `gorm:"not null;default:false" json:"gave_back"`

	CancelReason string     `json:"cancel_reason,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
}

func (Booking) TableName() string {
	return "bookings"
}

func (b *Booking) IsPending() bool {
	return b.Status == StatusPending
}

func (b *Booking) IsConfirmed() bool {
	return b.Status == StatusConfirmed
}

func (b *Booking) IsCancelled() bool {
	return b.Status == StatusCancelled
}

func (b *Booking) Confirm() {
	b.Status = StatusConfirmed
	b.UpdatedAt = time.Now()
}

func (b *Booking) Cancel(reason string) {
	b.Status = StatusCancelled
	b.CancelReason = reason
	now := time.Now()
	b.CancelledAt = &now
	b.UpdatedAt = now
}
