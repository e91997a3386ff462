package registration

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/password"
)

func TestValidate_CaptchaFails_ShortCircuits(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.captcha.ok = false

	req := validRequest()
	req.Password = "password" // would fail too, but must not be evaluated
	fe, err := h.validator.Validate(context.Background(), req)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	if fe.Len() != 1 {
		t.Fatalf("expected exactly one error, got %s", fe.String())
	}
	requireFieldMsg(t, fe, domain.FieldCaptcha, MsgCaptchaFailed)

	if n := h.users.lookups(); n != 0 {
		t.Fatalf("expected no store lookups, got %d", n)
	}
	if n := h.evaluator.calls.Load(); n != 0 {
		t.Fatalf("expected no password evaluation, got %d", n)
	}
}

func TestValidate_CaptchaError_FailsClosed(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.captcha.ok = true // an error must win over a stray true
	h.captcha.err = errors.New("network unreachable")

	fe, err := h.validator.Validate(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("captcha faults are not system errors, got %v", err)
	}
	requireFieldMsg(t, fe, domain.FieldCaptcha, MsgCaptchaFailed)
	if h.users.lookups() != 0 {
		t.Fatalf("expected no store lookups")
	}
}

func TestValidate_AllGood_Empty(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	fe, err := h.validator.Validate(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fe.Empty() {
		t.Fatalf("expected no field errors, got %s", fe.String())
	}
	if got := h.captcha.last.Load(); got != "tok" {
		t.Fatalf("expected captcha token to be forwarded, got %v", got)
	}
	if h.users.usernameLookups.Load() != 1 || h.users.emailLookups.Load() != 1 {
		t.Fatalf("expected one lookup each, got username=%d email=%d",
			h.users.usernameLookups.Load(), h.users.emailLookups.Load())
	}
}

func TestValidate_CollectsAllFieldErrors(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.users.seed(domain.User{ID: "u0", Username: "alice", Email: "alice@example.com"})

	req := validRequest()
	req.Password = "abcdefgh"

	fe, err := h.validator.Validate(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fe.Len() != 3 {
		t.Fatalf("expected 3 errors, got %s", fe.String())
	}
	requireFieldMsg(t, fe, domain.FieldUsername, MsgUsernameTaken)
	requireFieldMsg(t, fe, domain.FieldEmail, MsgEmailTaken)
	requireFieldMsg(t, fe, domain.FieldPassword, "You also need to include: uppercase, number and special character")
	if fe.Has(domain.FieldCaptcha) {
		t.Fatalf("captcha passed; did not expect captcha error")
	}
}

func TestValidate_PasswordOverBcryptLimit(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	req := validRequest()
	req.Password = "Abcdef1!" + strings.Repeat("x", 70)

	fe, err := h.validator.Validate(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fe.Len() != 1 {
		t.Fatalf("expected only a password error, got %s", fe.String())
	}
	requireFieldMsg(t, fe, domain.FieldPassword, password.FeedbackTooLong)
}

func TestValidate_UniquenessIsCaseSensitive(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.users.seed(domain.User{ID: "u0", Username: "alice", Email: "alice@example.com"})

	req := validRequest()
	req.Username = "Alice"
	req.Email = "Alice@example.com"

	fe, err := h.validator.Validate(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fe.Empty() {
		t.Fatalf("expected exact-match lookups, got %s", fe.String())
	}
}

func TestValidate_ShapeErrorsSkipLookups(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	req := validRequest()
	req.Username = "al"
	req.Email = "not-an-email"

	fe, err := h.validator.Validate(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	requireFieldMsg(t, fe, domain.FieldUsername, MsgUsernameShort)
	requireFieldMsg(t, fe, domain.FieldEmail, MsgEmailInvalid)
	if fe.Has(domain.FieldPassword) {
		t.Fatalf("password is fine, got %s", fe.String())
	}
	if h.users.lookups() != 0 {
		t.Fatalf("expected shape failures to skip store lookups, got %d", h.users.lookups())
	}
}

func TestValidate_MissingFields(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	fe, err := h.validator.Validate(context.Background(), Request{CaptchaToken: "tok"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	requireFieldMsg(t, fe, domain.FieldUsername, MsgUsernameRequired)
	requireFieldMsg(t, fe, domain.FieldEmail, MsgEmailRequired)
	requireFieldMsg(t, fe, domain.FieldPassword, "Password is very weak: use at least 8 characters.")
}

func TestValidate_LookupError_IsSystemError(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.users.existsErr = domain.ErrDBUnavailable(errStoreDown)

	fe, err := h.validator.Validate(context.Background(), validRequest())
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errors.Is(err, errStoreDown) {
		t.Fatalf("expected store cause to be preserved, got %v", err)
	}
	if !fe.Empty() {
		t.Fatalf("expected no field errors alongside a system error, got %s", fe.String())
	}
}

// blockingChecker holds both lookups until they have both started, proving
// they run concurrently rather than one after another.
type blockingChecker struct {
	started sync.WaitGroup
}

func (b *blockingChecker) wait(ctx context.Context) error {
	b.started.Done()
	done := make(chan struct{})
	go func() { b.started.Wait(); close(done) }()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *blockingChecker) IsUsernameTaken(ctx context.Context, _ string) (bool, error) {
	return false, b.wait(ctx)
}

func (b *blockingChecker) IsEmailTaken(ctx context.Context, _ string) (bool, error) {
	return false, b.wait(ctx)
}

func TestValidate_LookupsRunConcurrently(t *testing.T) {
	t.Parallel()

	shape, err := NewShapeValidator()
	if err != nil {
		t.Fatal(err)
	}
	bc := &blockingChecker{}
	bc.started.Add(2)

	v := NewValidator(&fakeCaptcha{ok: true}, bc, newHarness(t).evaluator, shape)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	fe, err := v.Validate(ctx, validRequest())
	if err != nil {
		t.Fatalf("lookups did not overlap: %v", err)
	}
	if !fe.Empty() {
		t.Fatalf("unexpected field errors: %s", fe.String())
	}
}
