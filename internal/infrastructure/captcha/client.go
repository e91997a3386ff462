// Package captcha verifies reCAPTCHA tokens against Google's siteverify API.
package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/pkg/circuitbreaker"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/pkg/retry"
)

const DefaultVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

var (
	// ErrNetwork covers transport failures and per-attempt timeouts.
	ErrNetwork = errors.New("captcha: network error")
	// ErrService covers non-2xx answers and bodies that cannot be decoded.
	ErrService = errors.New("captcha: service error")
)

// statusError keeps the provider status so the retry policy can tell 5xx
// from 4xx.
type statusError struct {
	code int
}

func (e *statusError) Error() string { return fmt.Sprintf("captcha: provider returned %d", e.code) }
func (e *statusError) Unwrap() error { return ErrService }

type Config struct {
	Secret    string
	VerifyURL string
	Timeout   time.Duration
	Retry     retry.Config

	BreakerMaxFailures  int
	BreakerResetTimeout time.Duration
}

func DefaultConfig(secret string) Config {
	return Config{
		Secret:    secret,
		VerifyURL: DefaultVerifyURL,
		Timeout:   5 * time.Second,
		Retry: retry.Config{
			MaxRetries:   2,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     2 * time.Second,
		},
		BreakerMaxFailures:  5,
		BreakerResetTimeout: 30 * time.Second,
	}
}

type siteVerifyResponse struct {
	Success    bool     `json:"success"`
	Hostname   string   `json:"hostname"`
	ErrorCodes []string `json:"error-codes"`
}

type Client struct {
	cfg     Config
	http    *http.Client
	breaker *circuitbreaker.CircuitBreaker
	lg      zerolog.Logger
}

func NewClient(cfg Config, httpClient *http.Client, lg zerolog.Logger) *Client {
	def := DefaultConfig(cfg.Secret)
	if cfg.VerifyURL == "" {
		cfg.VerifyURL = def.VerifyURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.BreakerResetTimeout <= 0 {
		cfg.BreakerResetTimeout = def.BreakerResetTimeout
	}
	cfg.Retry.Retryable = isRetryable
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		cfg:     cfg,
		http:    httpClient,
		breaker: circuitbreaker.NewCircuitBreaker(cfg.BreakerMaxFailures, cfg.BreakerResetTimeout, 1),
		lg:      lg.With().Str("component", "captcha_client").Logger(),
	}
}

// Verify reports whether the provider accepted token. An empty token is
// rejected locally. A non-nil error means the answer is unknown.
func (c *Client) Verify(ctx context.Context, token string) (bool, error) {
	if strings.TrimSpace(token) == "" {
		return false, nil
	}

	var ok bool
	err := c.breaker.Call(ctx, func(ctx context.Context) error {
		return retry.Do(ctx, c.cfg.Retry, func(ctx context.Context, attempt int) error {
			res, err := c.verifyOnce(ctx, token)
			if err != nil {
				c.lg.Debug().Err(err).Int("attempt", attempt).Msg("siteverify attempt failed")
				return err
			}
			ok = res.Success
			if !res.Success {
				c.lg.Debug().Strs("error_codes", res.ErrorCodes).Msg("captcha rejected")
			}
			return nil
		})
	})
	if err != nil {
		return false, err
	}
	return ok, nil
}

// BreakerState exposes the circuit breaker state for health reporting.
func (c *Client) BreakerState() circuitbreaker.CircuitState {
	return c.breaker.State()
}

func (c *Client) verifyOnce(ctx context.Context, token string) (siteVerifyResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	form := url.Values{}
	form.Set("secret", c.cfg.Secret)
	form.Set("response", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.VerifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return siteVerifyResponse{}, fmt.Errorf("%w: build request: %v", ErrService, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return siteVerifyResponse{}, err
		}
		return siteVerifyResponse{}, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return siteVerifyResponse{}, &statusError{code: resp.StatusCode}
	}

	var out siteVerifyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&out); err != nil {
		return siteVerifyResponse{}, fmt.Errorf("%w: decode: %v", ErrService, err)
	}
	return out, nil
}

// isRetryable retries network faults and 5xx answers only.
func isRetryable(err error) bool {
	if errors.Is(err, ErrNetwork) {
		return true
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500
	}
	return false
}
