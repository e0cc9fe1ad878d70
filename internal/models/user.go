package models

import "time"

type User struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	IsAdmin      bool
	// FailedAttempts is the only mutable authentication state the defense
	// layer writes: reset to 0 on a successful credential match, incremented
	// by exactly 1 on a failed one.
	FailedAttempts int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
