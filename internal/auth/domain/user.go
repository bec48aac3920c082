package domain

import "time"

type User struct {
	ID           string
	Username     string // unique, enforced by the store
	PasswordHash string // argon2 encoded
	IsAdmin      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
