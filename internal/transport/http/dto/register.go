package dto

import "github.com/baechuer/real-time-ressys/services/registration-service/internal/application/registration"

// RegisterRequest is the body of POST /api/users/register.
// Field validation happens in the registration validator, not here.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Captcha  string `json:"captcha"`
}

func (r RegisterRequest) ToApplication() registration.Request {
	return registration.Request{
		Username:     r.Username,
		Email:        r.Email,
		Password:     r.Password,
		CaptchaToken: r.Captcha,
	}
}
