package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/domain"
)

const (
	pgUniqueViolation = "23505"

	ConstraintUsernameKey = "users_username_key"
	ConstraintEmailKey    = "users_email_key"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

// ---------- registration.UserLookup ----------

// ExistsByUsername is an exact, case-sensitive match.
func (r *UserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1);`
	return r.exists(ctx, q, username)
}

// ExistsByEmail is an exact, case-sensitive match.
func (r *UserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1);`
	return r.exists(ctx, q, email)
}

func (r *UserRepo) exists(ctx context.Context, q, arg string) (bool, error) {
	var ok bool
	if err := r.db.QueryRowContext(ctx, q, arg).Scan(&ok); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		return false, domain.ErrDBUnavailable(err)
	}
	return ok, nil
}

// ---------- registration.UserRepo ----------

func (r *UserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	if strings.TrimSpace(u.ID) == "" {
		return domain.User{}, domain.ErrMissingField("id")
	}
	if u.Username == "" {
		return domain.User{}, domain.ErrMissingField("username")
	}
	if u.Email == "" {
		return domain.User{}, domain.ErrMissingField("email")
	}
	if u.PasswordHash == "" {
		return domain.User{}, domain.ErrMissingField("password_hash")
	}

	const q = `
INSERT INTO users (id, username, email, password_hash, is_verified, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING id, username, email, password_hash, is_verified, password_reset_token, password_reset_expires, created_at, updated_at;
`

	var ur userRow
	err := r.db.QueryRowContext(ctx, q,
		u.ID, u.Username, u.Email, u.PasswordHash, u.IsVerified, u.CreatedAt, u.UpdatedAt,
	).Scan(
		&ur.ID,
		&ur.Username,
		&ur.Email,
		&ur.PasswordHash,
		&ur.IsVerified,
		&ur.PasswordResetToken,
		&ur.PasswordResetExpires,
		&ur.CreatedAt,
		&ur.UpdatedAt,
	)
	if err != nil {
		if conflict := uniqueViolation(err); conflict != nil {
			return domain.User{}, conflict
		}
		return domain.User{}, domain.ErrDBUnavailable(err)
	}
	return ur.toDomain(), nil
}

// Ping backs the readiness probe.
func (r *UserRepo) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return domain.ErrDBUnavailable(err)
	}
	return nil
}

// uniqueViolation maps a 23505 on one of the users constraints to the
// matching conflict error. It returns nil for anything else.
func uniqueViolation(err error) *domain.Error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return nil
	}
	switch pgErr.ConstraintName {
	case ConstraintEmailKey:
		return domain.ErrEmailAlreadyExists()
	case ConstraintUsernameKey:
		return domain.ErrUsernameAlreadyExists()
	}
	// Unknown constraint; fall back on the message.
	detail := strings.ToLower(pgErr.Detail + " " + pgErr.Message)
	switch {
	case strings.Contains(detail, "email"):
		return domain.ErrEmailAlreadyExists()
	case strings.Contains(detail, "username"):
		return domain.ErrUsernameAlreadyExists()
	}
	return nil
}
