package postgres

import (
	"database/sql"
	"time"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/domain"
)

type userRow struct {
	ID                   string
	Username             string
	Email                string
	PasswordHash         string
	IsVerified           bool
	PasswordResetToken   sql.NullString
	PasswordResetExpires sql.NullTime
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (ur userRow) toDomain() domain.User {
	u := domain.User{
		ID:                 ur.ID,
		Username:           ur.Username,
		Email:              ur.Email,
		PasswordHash:       ur.PasswordHash,
		IsVerified:         ur.IsVerified,
		PasswordResetToken: ur.PasswordResetToken.String,
		CreatedAt:          ur.CreatedAt,
		UpdatedAt:          ur.UpdatedAt,
	}
	if ur.PasswordResetExpires.Valid {
		t := ur.PasswordResetExpires.Time
		u.PasswordResetExpires = &t
	}
	return u
}
