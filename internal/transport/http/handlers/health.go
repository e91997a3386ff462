package http_handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/logger"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/pkg/circuitbreaker"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/transport/http/response"
)

// Pinger is satisfied by the user stores.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BreakerReporter is satisfied by the captcha client.
type BreakerReporter interface {
	BreakerState() circuitbreaker.CircuitState
}

type HealthHandler struct {
	db          Pinger
	captcha     BreakerReporter
	pingTimeout time.Duration
}

func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db, pingTimeout: 2 * time.Second}
}

// WithCaptcha adds the captcha breaker state to readiness responses.
func (h *HealthHandler) WithCaptcha(c BreakerReporter) *HealthHandler {
	h.captcha = c
	return h
}

// Healthz handles GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{"status": "ok"})
}

// Readyz handles GET /readyz
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), h.pingTimeout)
		defer cancel()

		if err := h.db.Ping(ctx); err != nil {
			logger.WithCtx(r.Context()).Warn().Err(err).Msg("readiness check failed")
			response.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  "database unavailable",
			})
			return
		}
	}

	body := map[string]string{"status": "ready"}
	if h.captcha != nil {
		// an open captcha breaker is reported but keeps the instance in rotation
		state := h.captcha.BreakerState()
		body["captcha"] = state.String()
		if state == circuitbreaker.StateOpen {
			body["status"] = "degraded"
		}
	}
	response.OK(w, body)
}
