package model

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

var Statuses = []Status{StatusPending, StatusApproved, StatusRejected}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.IsValid() {
		return "", fmt.Errorf("status must be one of pending, approved, rejected: got %q", s)
	}
	return st, nil
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// HoldsSlot reports whether a booking in this status occupies its interval.
// Pending requests reserve the slot until an administrator decides.
func (s Status) HoldsSlot() bool {
	return s == StatusPending || s == StatusApproved
}

func (s Status) String() string {
	return string(s)
}

type Booking struct {
	ID        string    `json:"id" bson:"_id"`
	SpaceID   string    `json:"space_id" bson:"space_id"`
	UserID    string    `json:"user_id" bson:"user_id"`
	Date      Date      `json:"date" bson:"date"`
	StartTime TimeOfDay `json:"start_time" bson:"start_time"`
	EndTime   TimeOfDay `json:"end_time" bson:"end_time"`
	Status    Status    `json:"status" bson:"status"`
	Notes     string    `json:"notes,omitempty" bson:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// BookingUpdate is a partial patch; nil fields keep their current value.
type BookingUpdate struct {
	Date      *string `json:"date,omitempty" validate:"omitempty,calendar_date"`
	StartTime *string `json:"start_time,omitempty" validate:"omitempty,hhmm"`
	EndTime   *string `json:"end_time,omitempty" validate:"omitempty,hhmm"`
	Status    *string `json:"status,omitempty" validate:"omitempty,booking_status"`
	Notes     *string `json:"notes,omitempty" validate:"omitempty,max=500"`
}

func (u *BookingUpdate) TouchesInterval() bool {
	return u.Date != nil || u.StartTime != nil || u.EndTime != nil
}

func (u *BookingUpdate) IsEmpty() bool {
	return !u.TouchesInterval() && u.Status == nil && u.Notes == nil
}

// BookingRequest is the inbound shape of a create call.
type BookingRequest struct {
	SpaceID   string `json:"space_id" validate:"required,min=1,max=64"`
	Date      string `json:"date" validate:"required,calendar_date"`
	StartTime string `json:"start_time" validate:"required,hhmm"`
	EndTime   string `json:"end_time" validate:"required,hhmm"`
	Notes     string `json:"notes,omitempty" validate:"omitempty,max=500"`
}

type BookingFilter struct {
	SpaceID string
	UserID  string
	Status  Status
	From    Date
	To      Date
}
