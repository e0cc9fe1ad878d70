package models

import "time"

// FailedLogin is one failed authentication attempt. Rows are append-only:
// the defense layer never updates or deletes them inside the threat window.
type FailedLogin struct {
	ID        string    `db:"id"`
	Email     string    `db:"email"`
	IP        string    `db:"ip"`
	UserAgent string    `db:"user_agent"`
	CreatedAt time.Time `db:"created_at"`
}
