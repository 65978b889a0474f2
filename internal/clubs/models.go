package clubs

import (
	"time"

	"github.com/google/uuid"
)

// Club is a sports club hosting courts and instructors.
type Club struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Court is a numbered playing court at a club. Courts are assigned to slots
// at confirmation time, lowest free number first.
type Court struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ClubID    uuid.UUID `gorm:"type:uuid;index;not null" json:"club_id"`
	Number    int       `gorm:"not null" json:"number"`
	Active    bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Instructor teaches group classes.
type Instructor struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ClubID    uuid.UUID `gorm:"type:uuid;index;not null" json:"club_id"`
	Name      string    `gorm:"not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// CourtSchedule marks a court occupied for an interval. Written only when a
// slot is confirmed; read by the availability resolver.
type CourtSchedule struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ClubID      uuid.UUID `gorm:"type:uuid;index;not null" json:"club_id"`
	CourtNumber int       `gorm:"not null" json:"court_number"`
	SlotID      uuid.UUID `gorm:"type:uuid;index;not null" json:"slot_id"`
	StartTime   time.Time `gorm:"index;not null" json:"start_time"`
	EndTime     time.Time `gorm:"not null" json:"end_time"`
	Occupied    bool      `gorm:"not null;default:true" json:"occupied"`
	CreatedAt   time.Time `json:"created_at"`
}

// InstructorSchedule marks an instructor occupied for an interval.
type InstructorSchedule struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ClubID       uuid.UUID `gorm:"type:uuid;index;not null" json:"club_id"`
	InstructorID uuid.UUID `gorm:"type:uuid;index;not null" json:"instructor_id"`
	SlotID       uuid.UUID `gorm:"type:uuid;index;not null" json:"slot_id"`
	StartTime    time.Time `gorm:"index;not null" json:"start_time"`
	EndTime      time.Time `gorm:"not null" json:"end_time"`
	Occupied     bool      `gorm:"not null;default:true" json:"occupied"`
	CreatedAt    time.Time `json:"created_at"`
}

func (Club) TableName() string               { return "clubs" }
func (Court) TableName() string              { return "courts" }
func (Instructor) TableName() string         { return "instructors" }
func (CourtSchedule) TableName() string      { return "court_schedules" }
func (InstructorSchedule) TableName() string { return "instructor_schedules" }
