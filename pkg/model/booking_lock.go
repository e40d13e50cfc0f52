package model

import "time"

// SlotLock is an advisory lock document serializing writes to one (space, date) slot.
// ExpiresAt backs a TTL index so a crashed holder cannot wedge the slot.
type SlotLock struct {
	ID        string    `bson:"_id" json:"id"`
	Token     string    `bson:"token" json:"token"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
