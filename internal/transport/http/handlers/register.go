package http_handlers

import (
	"context"
	"net/http"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/application/registration"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/logger"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/transport/http/dto"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/transport/http/middleware"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/transport/http/response"
)

// Registrar is satisfied by *registration.Service.
type Registrar interface {
	Register(ctx context.Context, req registration.Request) (registration.Confirmation, error)
}

type RegisterHandler struct {
	svc Registrar
}

func NewRegisterHandler(svc Registrar) *RegisterHandler {
	return &RegisterHandler{svc: svc}
}

// Register handles POST /api/users/register
func (h *RegisterHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		middleware.RegistrationsTotal.WithLabelValues(middleware.OutcomeInvalidBody).Inc()
		response.WriteError(w, r, err)
		return
	}

	res, err := h.svc.Register(r.Context(), req.ToApplication())
	if err != nil {
		if _, ok := domain.AsValidation(err); ok {
			middleware.RegistrationsTotal.WithLabelValues(middleware.OutcomeRejected).Inc()
		} else {
			middleware.RegistrationsTotal.WithLabelValues(middleware.OutcomeError).Inc()
		}
		response.WriteError(w, r, err)
		return
	}

	middleware.RegistrationsTotal.WithLabelValues(middleware.OutcomeSuccess).Inc()
	logger.WithCtx(r.Context()).Info().
		Str("user_id", res.UserID).
		Str("username", res.Username).
		Msg("user_registered")

	response.Created(w, res.Message)
}
