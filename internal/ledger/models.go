package ledger

import (
	"time"

	"github.com/google/uuid"
)

type EntryType string

const (
	TypeCredit EntryType = "credit"
	TypePoints EntryType = "points"
)

type Action string

const (
	ActionBlock    Action = "block"
	ActionUnblock  Action = "unblock"
	ActionCharge   Action = "charge"
	ActionRefund   Action = "refund"
	ActionAdd      Action = "add"
	ActionSubtract Action = "subtract"
)

// Entry is one immutable row in the balance ledger. Entries are append-only:
// no update, no delete. Corrections happen through compensating entries.
type Entry struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID  uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	Type    EntryType `gorm:"type:varchar(10);not null" json:"type"`
	Action  Action    `gorm:"type:varchar(10);not null" json:"action"`
	Amount  int64     `gorm:"not null" json:"amount"`
	Balance int64     `gorm:"not null" json:"balance"` // balance after the event
	Concept string    `json:"concept"`

	// Booking the entry relates to, when there is one.
	RelatedBookingID *uuid.UUID `gorm:"type:uuid;index" json:"related_booking_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (Entry) TableName() string {
	return "ledger_entries"
}
