package domain

import "time"

type User struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	Role         string
	// TokenVersion invalidates outstanding tokens when bumped.
	TokenVersion int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
