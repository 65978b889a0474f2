package slots

import (
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindClass Kind = "CLASS"
	KindMatch Kind = "MATCH"
)

type Status string

const (
	StatusOpen      Status = "OPEN"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
)

const (
	CategoryOpen = "open"
	LevelOpen    = "open"
)

// Slot is a bookable class or match time unit at a club. Court stays nil
// until a group-size variant wins and a court is assigned; category and level
// stay "open" until the first booking fixes them. Slots are never deleted;
// superseded ones remain as cancelled records.
type Slot struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ClubID       uuid.UUID  `gorm:"type:uuid;index;not null" json:"club_id"`
	Kind         Kind       `gorm:"type:varchar(10);not null;default:'MATCH'" json:"kind"`
	CourtNumber  *int       `json:"court_number,omitempty"`
	InstructorID *uuid.UUID `gorm:"type:uuid;index" json:"instructor_id,omitempty"`
	StartTime    time.Time  `gorm:"index;not null" json:"start_time"`
	EndTime      time.Time  `gorm:"not null" json:"end_time"`

	// Price for the whole slot in minor currency units; each player pays
	// TotalPrice / groupSize.
	TotalPrice int64 `gorm:"not null" json:"total_price"`

	Category   string `gorm:"type:varchar(20);not null;default:'open'" json:"category"`
	Level      string `gorm:"type:varchar(20);not null;default:'open'" json:"level"`
	MaxPlayers int    `gorm:"not null;default:4" json:"max_players"`

	Status           Status     `gorm:"type:varchar(20);not null;default:'OPEN'" json:"status"`
	WinningGroupSize *int       `json:"winning_group_size,omitempty"`
	ParentSlotID     *uuid.UUID `gorm:"type:uuid" json:"parent_slot_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Slot) TableName() string {
	return "slots"
}

func (s *Slot) IsConfirmed() bool {
	return s.Status == StatusConfirmed
}

func (s *Slot) IsCancelled() bool {
	return s.Status == StatusCancelled
}

// IsClassified reports whether the first booking has already fixed the
// category/level of this slot.
func (s *Slot) IsClassified() bool {
	return s.Category != CategoryOpen
}

// SameDay reports whether t falls on the slot's calendar day, using the
// slot's local midnight-to-midnight boundary.
func (s *Slot) SameDay(t time.Time) bool {
	y1, m1, d1 := s.StartTime.Local().Date()
	y2, m2, d2 := t.Local().Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
