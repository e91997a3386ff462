package registration

import (
	"context"
	"time"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/password"
)

/*
CaptchaVerifier
---------------
Checks a client-side CAPTCHA token against the provider.
An error means the answer is unknown; callers must treat it as a failure.
*/
type CaptchaVerifier interface {
	Verify(ctx context.Context, token string) (bool, error)
}

/*
UniquenessChecker
-----------------
Read-only pre-check used for friendly messages. The store's unique
constraints remain the source of truth.
*/
type UniquenessChecker interface {
	IsUsernameTaken(ctx context.Context, username string) (bool, error)
	IsEmailTaken(ctx context.Context, email string) (bool, error)
}

/*
UserLookup
----------
findOne-by-field, exact match.
*/
type UserLookup interface {
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

/*
UserRepo
--------
Persistence port for users. Create must report unique-constraint violations
as domain.ErrUsernameAlreadyExists / domain.ErrEmailAlreadyExists.
*/
type UserRepo interface {
	UserLookup
	Create(ctx context.Context, u domain.User) (domain.User, error)
}

/*
PasswordHasher
--------------
Abstracts bcrypt.
*/
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// PasswordEvaluator scores a candidate password.
type PasswordEvaluator interface {
	Evaluate(pw string) password.Result
}

/*
EventPublisher
--------------
Publishes user lifecycle events to the broker. Delivery is best effort from
the registration flow's point of view.
*/
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, evt UserRegisteredEvent) error
}

type UserRegisteredEvent struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
