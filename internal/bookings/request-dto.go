package bookings

import "github.com/google/uuid"

// BookingRequest is the payload to create a booking on a slot.
type BookingRequest struct {
	SlotID        uuid.UUID `json:"slot_id" binding:"required"`
	GroupSize     int       `json:"group_size" binding:"required,min=1,max=4"`
	PayWithPoints bool      `json:"pay_with_points"`
}
