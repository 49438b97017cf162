package models

import (
	"time"
)

// User represents a marketplace participant. A user may act as a buyer on
// some inquiries and as a supplier on others.
type User struct {
	Base       `bson:",inline"`
	Username   string           `bson:"username" json:"username"`
	Email      string           `bson:"email" json:"email"`
	Reputation float64          `bson:"reputation" json:"reputation"`
	Stats      NegotiationStats `bson:"stats" json:"stats"`
	CreatedAt  time.Time        `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time        `bson:"updated_at" json:"updated_at"`
	Deleted    bool             `bson:"deleted" json:"-"` // Soft delete flag
}

// Snapshot returns the denormalized party view embedded in inquiries.
func (u *User) Snapshot() Party {
	return Party{
		ID:         u.ID,
		Username:   u.Username,
		Reputation: u.Reputation,
		Stats:      u.Stats,
	}
}
