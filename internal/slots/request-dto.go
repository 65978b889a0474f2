package slots

import (
	"time"

	"github.com/google/uuid"
)

// CreateSlotRequest is the admin payload to open a new bookable slot.
// TotalPrice is minor currency units for the whole slot.
type CreateSlotRequest struct {
	ClubID       uuid.UUID  `json:"club_id" binding:"required"`
	Kind         Kind       `json:"kind" binding:"required,oneof=CLASS MATCH"`
	InstructorID *uuid.UUID `json:"instructor_id"`
	StartTime    time.Time  `json:"start_time" binding:"required"`
	EndTime      time.Time  `json:"end_time" binding:"required,gtfield=StartTime"`
	TotalPrice   int64      `json:"total_price" binding:"required,min=1"`
	MaxPlayers   int        `json:"max_players" binding:"required,min=1,max=4"`
}
