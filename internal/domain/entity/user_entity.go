package entity

import (
	"time"
)

// User is the aggregate root for the registration domain.
// Password holds a bcrypt hash, never the raw value.
// Deleted is a soft-delete marker; deleted users stay readable.
type User struct {
	ID            int64
	Email         string
	Username      string
	Password      string
	FirstName     string
	LastName      string
	CreatedAt     time.Time
	LastUpdatedAt time.Time
	Deleted       bool
}
