package registration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/logger"
)

// RequestValidator is satisfied by *Validator.
type RequestValidator interface {
	Validate(ctx context.Context, req Request) (domain.FieldErrors, error)
}

type Service struct {
	validator RequestValidator
	users     UserRepo
	hasher    PasswordHasher
	pub       EventPublisher

	now   func() time.Time
	newID func() string
	audit func(ctx context.Context, action string, fields map[string]string)
}

func NewService(validator RequestValidator, users UserRepo, hasher PasswordHasher, pub EventPublisher) *Service {
	return &Service{
		validator: validator,
		users:     users,
		hasher:    hasher,
		pub:       pub,
		now:       time.Now,
		newID:     uuid.NewString,
		audit:     func(context.Context, string, map[string]string) {},
	}
}

func (s *Service) WithAudit(fn func(ctx context.Context, action string, fields map[string]string)) *Service {
	if fn != nil {
		s.audit = fn
	}
	return s
}

// Register validates req and, when it is clean, stores a new user.
//
// The returned error is either a *domain.ValidationError (user-correctable,
// carries per-field messages) or a system *domain.Error.
func (s *Service) Register(ctx context.Context, req Request) (Confirmation, error) {
	req = req.Normalize()

	fe, err := s.validator.Validate(ctx, req)
	if err != nil {
		return Confirmation{}, systemError("validate registration", err)
	}
	if ve := domain.NewValidationError(fe); ve != nil {
		s.audit(ctx, "registration_rejected", map[string]string{
			"fields": joinFields(fe),
		})
		return Confirmation{}, ve
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		var de *domain.Error
		if errors.As(err, &de) {
			return Confirmation{}, err
		}
		return Confirmation{}, domain.ErrHashFailed(err)
	}

	now := s.now().UTC()
	created, err := s.users.Create(ctx, domain.User{
		ID:           s.newID(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		IsVerified:   false,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	switch {
	case domain.Is(err, domain.CodeEmailAlreadyExists):
		// Lost the race against a concurrent registration.
		s.audit(ctx, "registration_conflict", map[string]string{"field": string(domain.FieldEmail)})
		return Confirmation{}, domain.NewValidationError(domain.SingleFieldError(domain.FieldEmail, MsgEmailTaken))
	case domain.Is(err, domain.CodeUsernameAlreadyExists):
		s.audit(ctx, "registration_conflict", map[string]string{"field": string(domain.FieldUsername)})
		return Confirmation{}, domain.NewValidationError(domain.SingleFieldError(domain.FieldUsername, MsgUsernameTaken))
	case err != nil:
		return Confirmation{}, systemError("create user", err)
	}

	if s.pub != nil {
		evt := UserRegisteredEvent{
			UserID:    created.ID,
			Username:  created.Username,
			Email:     created.Email,
			CreatedAt: created.CreatedAt,
		}
		if err := s.pub.PublishUserRegistered(ctx, evt); err != nil {
			logger.WithCtx(ctx).Warn().Err(err).Str("user_id", created.ID).Msg("publish user.registered failed")
		}
	}

	s.audit(ctx, "user_registered", map[string]string{
		"user_id":  created.ID,
		"username": created.Username,
	})

	return Confirmation{
		UserID:    created.ID,
		Username:  created.Username,
		Email:     created.Email,
		CreatedAt: created.CreatedAt,
		Message:   MsgRegistered,
	}, nil
}

// systemError keeps domain errors intact and wraps anything else as internal.
func systemError(op string, err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return domain.ErrInternal(fmt.Errorf("%s: %w", op, err))
}

func joinFields(fe domain.FieldErrors) string {
	fields := fe.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	return strings.Join(names, ",")
}
