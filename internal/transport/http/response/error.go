package response

import (
	"errors"
	"net/http"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/logger"
)

const (
	MsgInvalidBody = "Invalid request body."
	MsgUnexpected  = "An unexpected error occurred. Please try again."
)

// ErrorsBody is the single error shape of the API: one message per field.
type ErrorsBody struct {
	Errors map[string]string `json:"errors"`
}

// WriteFieldErrors writes a 400 with the given per-field messages.
func WriteFieldErrors(w http.ResponseWriter, fe domain.FieldErrors) {
	WriteJSON(w, http.StatusBadRequest, ErrorsBody{Errors: fe.ToMap()})
}

// WriteError converts err into the API error shape.
//   - *domain.ValidationError => 400 with its fields
//   - domain validation errors (bad JSON, missing body) => 400 general
//   - anything else => 500 general, details logged only
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	if ve, ok := domain.AsValidation(err); ok {
		WriteFieldErrors(w, ve.Fields)
		return
	}

	var de *domain.Error
	if errors.As(err, &de) && de.Kind == domain.KindValidation {
		WriteFieldErrors(w, domain.SingleFieldError(domain.FieldGeneral, MsgInvalidBody))
		return
	}

	logger.WithCtx(r.Context()).Error().
		Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("request failed")

	WriteJSON(w, http.StatusInternalServerError, ErrorsBody{
		Errors: map[string]string{string(domain.FieldGeneral): MsgUnexpected},
	})
}
