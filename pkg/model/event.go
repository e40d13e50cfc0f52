package model

import "time"

type EventType string

const (
	EventBookingRequest EventType = "booking_request"
	EventStatusUpdate   EventType = "status_update"
	EventBookingDeleted EventType = "booking_deleted"
)

// RecipientAdmins addresses every administrator instead of a single user.
const RecipientAdmins = "admins"

type BookingEvent struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Recipient  string    `json:"recipient"`
	Booking    Booking   `json:"booking"`
	OccurredAt time.Time `json:"occurred_at"`
}
