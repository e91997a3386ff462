package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrExhausted wraps the last error once every attempt has failed.
var ErrExhausted = errors.New("max retries exceeded")

// Config holds retry configuration.
// MaxRetries counts retries after the first attempt, so 0 means "try once".
type Config struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration

	// Retryable decides whether an error deserves another attempt.
	// nil means every error is retryable.
	Retryable func(error) bool
}

func (c Config) isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if c.Retryable == nil {
		return true
	}
	return c.Retryable(err)
}

// CalculateDelay calculates exponential backoff delay
func CalculateDelay(attempt int, cfg Config) time.Duration {
	delay := time.Duration(float64(cfg.InitialDelay) * math.Pow(2, float64(attempt)))
	if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}
	return delay
}

// Do executes fn with retry logic. The attempt number (0-based) is passed to fn.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context, attempt int) error) error {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := CalculateDelay(attempt-1, cfg)
			t := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				t.Stop()
				if lastErr != nil {
					return fmt.Errorf("%w: %w", ctx.Err(), lastErr)
				}
				return ctx.Err()
			case <-t.C:
			}
		}

		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		if !cfg.isRetryable(err) {
			return err
		}
	}

	if cfg.MaxRetries == 0 {
		return lastErr
	}
	return fmt.Errorf("%w: %w", ErrExhausted, lastErr)
}
