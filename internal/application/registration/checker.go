package registration

import (
	"context"
	"errors"
	"time"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/pkg/retry"
)

// LookupPolicy bounds every store lookup made by StoreChecker.
type LookupPolicy struct {
	Timeout time.Duration
	Retry   retry.Config
}

func DefaultLookupPolicy() LookupPolicy {
	return LookupPolicy{
		Timeout: 2 * time.Second,
		Retry: retry.Config{
			MaxRetries:   1,
			InitialDelay: 50 * time.Millisecond,
			MaxDelay:     500 * time.Millisecond,
		},
	}
}

// StoreChecker answers uniqueness questions from a UserLookup.
type StoreChecker struct {
	users  UserLookup
	policy LookupPolicy
}

func NewStoreChecker(users UserLookup, policy LookupPolicy) *StoreChecker {
	if policy.Timeout <= 0 {
		policy.Timeout = DefaultLookupPolicy().Timeout
	}
	if policy.Retry.Retryable == nil {
		policy.Retry.Retryable = isTransientLookupErr
	}
	return &StoreChecker{users: users, policy: policy}
}

func (c *StoreChecker) IsUsernameTaken(ctx context.Context, username string) (bool, error) {
	return c.exists(ctx, username, c.users.ExistsByUsername)
}

func (c *StoreChecker) IsEmailTaken(ctx context.Context, email string) (bool, error) {
	return c.exists(ctx, email, c.users.ExistsByEmail)
}

func (c *StoreChecker) exists(ctx context.Context, value string, lookup func(context.Context, string) (bool, error)) (bool, error) {
	var taken bool
	err := retry.Do(ctx, c.policy.Retry, func(ctx context.Context, _ int) error {
		cctx, cancel := context.WithTimeout(ctx, c.policy.Timeout)
		defer cancel()

		t, err := lookup(cctx, value)
		if err != nil {
			return err
		}
		taken = t
		return nil
	})
	if err != nil {
		return false, err
	}
	return taken, nil
}

// isTransientLookupErr retries infrastructure faults and per-attempt timeouts.
func isTransientLookupErr(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return de.Kind == domain.KindInfrastructure
	}
	return false
}
