package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/linkit-hq/linkit-engine/pkg/apperrors"
	"github.com/linkit-hq/linkit-engine/pkg/auth"
	"github.com/linkit-hq/linkit-engine/pkg/services"
)

// Shown to the user on fatal failures; details go to logs and the operator chat only.
const apologyMessage = "Что-то пошло не так. Попробуй ещё раз чуть позже."

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// errorWriter writes error responses for one handler and alerts the operator on fatal ones.
type errorWriter struct {
	alerter services.OperatorAlerter
	logger  *zap.Logger
}

func (e errorWriter) write(w http.ResponseWriter, statusCode int, errorCode, message string) {
	if err := ErrorResponse(w, statusCode, errorCode, message); err != nil {
		e.logger.Error("Failed to write error response", zap.Error(err))
	}
}

func (e errorWriter) json(w http.ResponseWriter, statusCode int, data interface{}) {
	if err := WriteJSON(w, statusCode, data); err != nil {
		e.logger.Error("Failed to write response", zap.Error(err))
	}
}

// service maps a service error onto a status code. Unclassified errors are fatal.
func (e errorWriter) service(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, apperrors.ErrInvalidInput):
		e.write(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, apperrors.ErrNotFound):
		e.write(w, http.StatusNotFound, "not_found", "Not found")
	case errors.Is(err, apperrors.ErrForbidden):
		e.write(w, http.StatusForbidden, "forbidden", "Forbidden")
	case errors.Is(err, apperrors.ErrConflict):
		e.write(w, http.StatusConflict, "conflict", "Conflict")
	default:
		e.internal(w, r, err, op)
	}
}

// internal logs a fatal failure, alerts the operator and apologizes to the caller.
func (e errorWriter) internal(w http.ResponseWriter, r *http.Request, err error, op string) {
	ctx := r.Context()
	e.logger.Error(op,
		zap.Int64("actor_id", int64(auth.GetActorIDFromContext(ctx))),
		zap.Error(err))
	if e.alerter != nil {
		e.alerter.Alert(ctx, auth.GetActorIDFromContext(ctx), auth.GetConversationIDFromContext(ctx), services.ErrorType(err))
	}
	e.write(w, http.StatusInternalServerError, "internal_error", apologyMessage)
}

// decodeJSON reads a JSON body, rejecting unknown fields.
func (e errorWriter) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		e.write(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return false
	}
	return true
}
