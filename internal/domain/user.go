package domain

import "time"

// User is an account able to review and like.
type User struct {
	ID           int64
	Username     string
	Email        string
	IsAdmin      bool
	TokenVersion int
	Liked        int64
	CreatedAt    time.Time
}
