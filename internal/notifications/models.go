package notifications

import "time"

// BookingEvent is the message published for every booking lifecycle change.
// Payload keys vary by event type; booking_id, user_id and slot_id are
// always present.
type BookingEvent struct {
	Type      string                 `json:"type"`
	Payload   map[string]interface{} `json:"payload"`
	Timestamp time.Time              `json:"timestamp"`
}
