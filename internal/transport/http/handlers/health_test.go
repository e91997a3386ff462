package http_handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/pkg/circuitbreaker"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(ctx context.Context) error { return p.err }

type fakeBreaker circuitbreaker.CircuitState

func (b fakeBreaker) BreakerState() circuitbreaker.CircuitState { return circuitbreaker.CircuitState(b) }

func TestHealthz_ReturnsOK(t *testing.T) {
	h := NewHealthHandler(nil)

	rr := httptest.NewRecorder()
	h.Healthz(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	var body map[string]string
	mustReadJSON(t, rr.Body, &body)
	if body["status"] != "ok" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestReadyz(t *testing.T) {
	tests := []struct {
		name       string
		db         Pinger
		wantStatus int
		wantBody   string
	}{
		{"no db configured", nil, http.StatusOK, "ready"},
		{"db up", fakePinger{}, http.StatusOK, "ready"},
		{"db down", fakePinger{err: errors.New("refused")}, http.StatusServiceUnavailable, "unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.db)

			rr := httptest.NewRecorder()
			h.Readyz(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			if rr.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rr.Code)
			}
			var body map[string]string
			mustReadJSON(t, rr.Body, &body)
			if body["status"] != tt.wantBody {
				t.Fatalf("unexpected body: %v", body)
			}
		})
	}
}

func TestReadyz_CaptchaBreaker(t *testing.T) {
	tests := []struct {
		name        string
		state       circuitbreaker.CircuitState
		wantStatus  string
		wantCaptcha string
	}{
		{"closed", circuitbreaker.StateClosed, "ready", "closed"},
		{"half open", circuitbreaker.StateHalfOpen, "ready", "half_open"},
		{"open", circuitbreaker.StateOpen, "degraded", "open"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(fakePinger{}).WithCaptcha(fakeBreaker(tt.state))

			rr := httptest.NewRecorder()
			h.Readyz(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			if rr.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rr.Code)
			}
			var body map[string]string
			mustReadJSON(t, rr.Body, &body)
			if body["status"] != tt.wantStatus || body["captcha"] != tt.wantCaptcha {
				t.Fatalf("unexpected body: %v", body)
			}
		})
	}
}

func TestReadyz_DatabaseDownWinsOverCaptcha(t *testing.T) {
	h := NewHealthHandler(fakePinger{err: errors.New("refused")}).
		WithCaptcha(fakeBreaker(circuitbreaker.StateOpen))

	rr := httptest.NewRecorder()
	h.Readyz(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}
