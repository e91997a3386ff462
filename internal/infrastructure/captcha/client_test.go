package captcha

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/pkg/circuitbreaker"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/pkg/retry"
)

func testConfig(url string) Config {
	return Config{
		Secret:    "s3cret",
		VerifyURL: url,
		Timeout:   time.Second,
		Retry: retry.Config{
			MaxRetries:   2,
			InitialDelay: time.Millisecond,
			MaxDelay:     5 * time.Millisecond,
		},
		BreakerMaxFailures:  3,
		BreakerResetTimeout: time.Minute,
	}
}

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return NewClient(testConfig(srv.URL), srv.Client(), zerolog.Nop()), &calls
}

func TestVerify_SendsFormAndAccepts(t *testing.T) {
	t.Parallel()

	var gotSecret, gotResponse, gotCT string
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotCT = r.Header.Get("Content-Type")
		_ = r.ParseForm()
		gotSecret = r.PostForm.Get("secret")
		gotResponse = r.PostForm.Get("response")
		_, _ = w.Write([]byte(`{"success": true, "hostname": "localhost"}`))
	})

	ok, err := c.Verify(context.Background(), "tok&en=1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "application/x-www-form-urlencoded", gotCT)
	assert.Equal(t, "s3cret", gotSecret)
	assert.Equal(t, "tok&en=1", gotResponse, "token must be form-encoded, not concatenated")
}

func TestVerify_ProviderRejects(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success": false, "error-codes": ["invalid-input-response"]}`))
	})

	ok, err := c.Verify(context.Background(), "bad")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerify_EmptyTokenSkipsNetwork(t *testing.T) {
	t.Parallel()

	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success": true}`))
	})

	for _, tok := range []string{"", "   "} {
		ok, err := c.Verify(context.Background(), tok)
		require.NoError(t, err)
		assert.False(t, ok)
	}
	assert.Equal(t, int32(0), calls.Load())
}

func TestVerify_RetriesServerErrors(t *testing.T) {
	t.Parallel()

	var n atomic.Int32
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if n.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"success": true}`))
	})

	ok, err := c.Verify(context.Background(), "tok")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int32(3), calls.Load())
}

func TestVerify_DoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	ok, err := c.Verify(context.Background(), "tok")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrService)
	assert.Equal(t, int32(1), calls.Load())
}

func TestVerify_UndecodableBody(t *testing.T) {
	t.Parallel()

	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>oops</html>`))
	})

	ok, err := c.Verify(context.Background(), "tok")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrService)
	assert.Equal(t, int32(1), calls.Load())
}

func TestVerify_TimeoutIsNetworkError(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	cfg := testConfig(srv.URL)
	cfg.Timeout = 20 * time.Millisecond
	cfg.Retry.MaxRetries = 1
	c := NewClient(cfg, srv.Client(), zerolog.Nop())

	start := time.Now()
	ok, err := c.Verify(context.Background(), "tok")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.ErrorIs(t, err, retry.ErrExhausted)
	assert.Less(t, time.Since(start), time.Second)
}

func TestVerify_UnreachableProvider(t *testing.T) {
	t.Parallel()

	cfg := testConfig("http://127.0.0.1:1/siteverify")
	cfg.Retry.MaxRetries = 0
	c := NewClient(cfg, nil, zerolog.Nop())

	ok, err := c.Verify(context.Background(), "tok")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestVerify_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	t.Parallel()

	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	c.cfg.Retry.MaxRetries = 0

	for i := 0; i < 3; i++ {
		_, err := c.Verify(context.Background(), "tok")
		require.ErrorIs(t, err, ErrService)
	}
	assert.Equal(t, circuitbreaker.StateOpen, c.BreakerState())

	_, err := c.Verify(context.Background(), "tok")
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.Equal(t, int32(3), calls.Load(), "open breaker must not reach the provider")
}

func TestNewClient_Defaults(t *testing.T) {
	t.Parallel()

	c := NewClient(Config{Secret: "x"}, nil, zerolog.Nop())
	assert.Equal(t, DefaultVerifyURL, c.cfg.VerifyURL)
	assert.Equal(t, 5*time.Second, c.cfg.Timeout)
	assert.NotNil(t, c.cfg.Retry.Retryable)
	assert.Equal(t, circuitbreaker.StateClosed, c.BreakerState())
}
