package registration

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/password"
)

/*
Fakes for ports
*/

type fakeCaptcha struct {
	ok    bool
	err   error
	calls atomic.Int32
	last  atomic.Value // string
}

func (f *fakeCaptcha) Verify(ctx context.Context, token string) (bool, error) {
	f.calls.Add(1)
	f.last.Store(token)
	return f.ok, f.err
}

type fakeUserRepo struct {
	mu sync.Mutex

	byUsername map[string]domain.User
	byEmail    map[string]domain.User

	// injected errors
	existsErr error
	createErr error

	usernameLookups atomic.Int32
	emailLookups    atomic.Int32
	creates         []domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byUsername: map[string]domain.User{},
		byEmail:    map[string]domain.User{},
	}
}

func (f *fakeUserRepo) seed(u domain.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byUsername[u.Username] = u
	f.byEmail[u.Email] = u
}

func (f *fakeUserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	f.usernameLookups.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, ok := f.byUsername[username]
	return ok, nil
}

func (f *fakeUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	f.emailLookups.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, ok := f.byEmail[email]
	return ok, nil
}

func (f *fakeUserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return domain.User{}, f.createErr
	}
	if _, ok := f.byUsername[u.Username]; ok {
		return domain.User{}, domain.ErrUsernameAlreadyExists()
	}
	if _, ok := f.byEmail[u.Email]; ok {
		return domain.User{}, domain.ErrEmailAlreadyExists()
	}
	f.byUsername[u.Username] = u
	f.byEmail[u.Email] = u
	f.creates = append(f.creates, u)
	return u, nil
}

func (f *fakeUserRepo) lookups() int {
	return int(f.usernameLookups.Load() + f.emailLookups.Load())
}

type fakeHasher struct {
	hashFn func(pw string) (string, error)
	seen   []string
}

func (h *fakeHasher) Hash(pw string) (string, error) {
	h.seen = append(h.seen, pw)
	if h.hashFn != nil {
		return h.hashFn(pw)
	}
	return "hash:" + pw, nil
}

type countingEvaluator struct {
	inner *password.Evaluator
	calls atomic.Int32
}

func (c *countingEvaluator) Evaluate(pw string) password.Result {
	c.calls.Add(1)
	return c.inner.Evaluate(pw)
}

type fakePublisher struct {
	mu     sync.Mutex
	err    error
	events []UserRegisteredEvent
}

func (p *fakePublisher) PublishUserRegistered(ctx context.Context, evt UserRegisteredEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, evt)
	return nil
}

type auditEntry struct {
	action string
	fields map[string]string
}

/*
Wiring helpers
*/

type harness struct {
	svc       *Service
	validator *Validator
	captcha   *fakeCaptcha
	users     *fakeUserRepo
	hasher    *fakeHasher
	evaluator *countingEvaluator
	pub       *fakePublisher

	auditMu sync.Mutex
	audits  []auditEntry
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	shape, err := NewShapeValidator()
	if err != nil {
		t.Fatalf("shape validator: %v", err)
	}

	h := &harness{
		captcha:   &fakeCaptcha{ok: true},
		users:     newFakeUserRepo(),
		hasher:    &fakeHasher{},
		evaluator: &countingEvaluator{inner: password.NewEvaluator(password.DefaultPolicy())},
		pub:       &fakePublisher{},
	}

	checker := NewStoreChecker(h.users, LookupPolicy{Timeout: time.Second})
	h.validator = NewValidator(h.captcha, checker, h.evaluator, shape)
	h.svc = NewService(h.validator, h.users, h.hasher, h.pub).WithAudit(func(_ context.Context, action string, fields map[string]string) {
		h.auditMu.Lock()
		defer h.auditMu.Unlock()
		h.audits = append(h.audits, auditEntry{action: action, fields: fields})
	})
	h.svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	h.svc.newID = func() string { return "user-1" }
	return h
}

func (h *harness) auditActions() []string {
	h.auditMu.Lock()
	defer h.auditMu.Unlock()
	out := make([]string, len(h.audits))
	for i, a := range h.audits {
		out[i] = a.action
	}
	return out
}

func validRequest() Request {
	return Request{
		Username:     "alice",
		Email:        "alice@example.com",
		Password:     "Abcdef1!",
		CaptchaToken: "tok",
	}
}

func requireFieldMsg(t *testing.T, fe domain.FieldErrors, f domain.Field, want string) {
	t.Helper()
	got, ok := fe.Get(f)
	if !ok {
		t.Fatalf("expected %s error, got %s", f, fe.String())
	}
	if want != "" && got != want {
		t.Fatalf("field %s: expected %q, got %q", f, want, got)
	}
}

func requireValidationError(t *testing.T, err error) domain.FieldErrors {
	t.Helper()
	ve, ok := domain.AsValidation(err)
	if !ok {
		t.Fatalf("expected *domain.ValidationError, got %T: %v", err, err)
	}
	return ve.Fields
}

var errStoreDown = errors.New("connection refused")

func contains(s, sub string) bool { return strings.Contains(s, sub) }
