package registration

import (
	"strings"
	"time"
)

// Request is one registration attempt as submitted by the form.
type Request struct {
	Username     string
	Email        string
	Password     string
	CaptchaToken string
}

// Normalize trims username and email. The password is left untouched.
func (r Request) Normalize() Request {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.TrimSpace(r.Email)
	return r
}

// Confirmation is returned on success. It never carries the password or hash.
type Confirmation struct {
	UserID    string
	Username  string
	Email     string
	CreatedAt time.Time
	Message   string
}

// User-facing messages.
const (
	MsgRegistered       = "User successfully registered."
	MsgCaptchaFailed    = "CAPTCHA verification failed. Please try again."
	MsgUsernameRequired = "Username is required."
	MsgUsernameShort    = "Username must be at least 3 characters."
	MsgUsernameTaken    = "Username is already in use."
	MsgEmailRequired    = "Email is required."
	MsgEmailInvalid     = "Invalid email format."
	MsgEmailTaken       = "Email is already in use."
	MsgUnexpected       = "An unexpected error occurred. Please try again."
)
