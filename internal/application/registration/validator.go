package registration

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/logger"
)

// Validator decides whether a registration request may proceed.
//
// The CAPTCHA runs alone first; a failure returns immediately with only the
// captcha field set and no store or password work. Otherwise username, email
// and password are checked concurrently and every failing field is reported.
type Validator struct {
	captcha  CaptchaVerifier
	unique   UniquenessChecker
	password PasswordEvaluator
	shape    *ShapeValidator
}

func NewValidator(captcha CaptchaVerifier, unique UniquenessChecker, pw PasswordEvaluator, shape *ShapeValidator) *Validator {
	return &Validator{
		captcha:  captcha,
		unique:   unique,
		password: pw,
		shape:    shape,
	}
}

// Validate returns the per-field problems of req. An empty result with a nil
// error is the only signal that the request may be persisted. A non-nil error
// is an infrastructure fault from a uniqueness lookup.
func (v *Validator) Validate(ctx context.Context, req Request) (domain.FieldErrors, error) {
	if !v.captchaPassed(ctx, req.CaptchaToken) {
		return domain.SingleFieldError(domain.FieldCaptcha, MsgCaptchaFailed), nil
	}

	shapeErrs := v.shape.Check(req)

	var usernameMsg, emailMsg, passwordMsg string
	g, gctx := errgroup.WithContext(ctx)

	if !shapeErrs.Has(domain.FieldUsername) {
		g.Go(func() error {
			taken, err := v.unique.IsUsernameTaken(gctx, req.Username)
			if err != nil {
				return fmt.Errorf("username lookup: %w", err)
			}
			if taken {
				usernameMsg = MsgUsernameTaken
			}
			return nil
		})
	}

	if !shapeErrs.Has(domain.FieldEmail) {
		g.Go(func() error {
			taken, err := v.unique.IsEmailTaken(gctx, req.Email)
			if err != nil {
				return fmt.Errorf("email lookup: %w", err)
			}
			if taken {
				emailMsg = MsgEmailTaken
			}
			return nil
		})
	}

	g.Go(func() error {
		if res := v.password.Evaluate(req.Password); !res.Valid {
			passwordMsg = res.Feedback
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return domain.FieldErrors{}, err
	}

	return domain.NewFieldErrorsBuilder().
		Merge(shapeErrs).
		Add(domain.FieldUsername, usernameMsg).
		Add(domain.FieldEmail, emailMsg).
		Add(domain.FieldPassword, passwordMsg).
		Build(), nil
}

// captchaPassed fails closed: provider errors count as a failed check.
func (v *Validator) captchaPassed(ctx context.Context, token string) bool {
	ok, err := v.captcha.Verify(ctx, token)
	if err != nil {
		logger.WithCtx(ctx).Warn().Err(err).Msg("captcha verification error; rejecting")
		return false
	}
	return ok
}
