package domain

import "time"

// User is the persisted account record. Only the hash of the password is
// ever stored.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	IsVerified   bool

	// Reserved for a password-reset flow; never written by registration.
	PasswordResetToken   string
	PasswordResetExpires *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

const UsernameMinLength = 3
