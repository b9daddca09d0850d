package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/indigolab/indigo-core/internal/control"
	"github.com/indigolab/indigo-core/internal/poller"
	"github.com/indigolab/indigo-core/internal/recipe"
	"github.com/indigolab/indigo-core/internal/registry"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest      = "bad_request"
	ErrCodeNotFound        = "not_found"
	ErrCodeNotReady        = "not_ready"
	ErrCodeNotAcknowledged = "not_acknowledged"
	ErrCodeUnavailable     = "unavailable"
	ErrCodeTimeout         = "timeout"
	ErrCodeInternal        = "internal_error"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeUnavailable writes a 503 error response.
func writeUnavailable(w http.ResponseWriter, message string) {
	writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeDomainError maps controller, scheduler, registry and recipe errors
// onto status codes. Unrecognised errors become 500 with a generic message.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, control.ErrUnknownLane),
		errors.Is(err, control.ErrUnknownCommand),
		errors.Is(err, registry.ErrUnknownAddress),
		errors.Is(err, recipe.ErrRecipeNotFound):
		writeNotFound(w, err.Error())
	case errors.Is(err, control.ErrInvalidParameter),
		errors.Is(err, recipe.ErrInvalidPayload):
		writeBadRequest(w, err.Error())
	case errors.Is(err, control.ErrNotReady):
		writeError(w, http.StatusConflict, ErrCodeNotReady, err.Error())
	case errors.Is(err, control.ErrNotAcknowledged):
		writeError(w, http.StatusBadGateway, ErrCodeNotAcknowledged, err.Error())
	case errors.Is(err, poller.ErrQueueFull),
		errors.Is(err, poller.ErrNotRunning):
		writeUnavailable(w, err.Error())
	case errors.Is(err, poller.ErrNoResponse),
		errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, ErrCodeTimeout, err.Error())
	default:
		writeInternalError(w, "internal server error")
	}
}
