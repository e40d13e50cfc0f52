package notifications

import (
	"fmt"
	"time"

	"venuebook/pkg/model"
)

const (
	channelPrefix = "notifications:"
	inboxPrefix   = "inbox:"
)

// Notification is what a recipient sees, both on the live channel and in the inbox.
type Notification struct {
	ID         string          `json:"id"`
	Type       model.EventType `json:"type"`
	Recipient  string          `json:"recipient"`
	Message    string          `json:"message"`
	BookingID  string          `json:"booking_id"`
	SpaceID    string          `json:"space_id"`
	Date       model.Date      `json:"date"`
	StartTime  model.TimeOfDay `json:"start_time"`
	EndTime    model.TimeOfDay `json:"end_time"`
	Status     model.Status    `json:"status"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Delivery carries one event through the pipeline.
type Delivery struct {
	Event        model.BookingEvent
	Notification Notification
	Channel      string
	InboxKey     string
}

func ChannelFor(recipient string) string {
	if recipient == model.RecipientAdmins {
		return channelPrefix + model.RecipientAdmins
	}
	return channelPrefix + "user:" + recipient
}

func InboxKeyFor(recipient string) string {
	if recipient == model.RecipientAdmins {
		return inboxPrefix + model.RecipientAdmins
	}
	return inboxPrefix + "user:" + recipient
}

type renderFunc func(b model.Booking) string

var renderers = map[model.EventType]renderFunc{
	model.EventBookingRequest: func(b model.Booking) string {
		return fmt.Sprintf("New booking request from %s for %s on %s %s-%s", b.UserID, b.SpaceID, b.Date, b.StartTime, b.EndTime)
	},
	model.EventStatusUpdate: func(b model.Booking) string {
		return fmt.Sprintf("Your booking for %s on %s %s-%s is now %s", b.SpaceID, b.Date, b.StartTime, b.EndTime, b.Status)
	},
	model.EventBookingDeleted: func(b model.Booking) string {
		return fmt.Sprintf("Your booking for %s on %s %s-%s was deleted by an administrator", b.SpaceID, b.Date, b.StartTime, b.EndTime)
	},
}

