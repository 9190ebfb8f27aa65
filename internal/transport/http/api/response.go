package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"flexidays/internal/domain/leave"
	"flexidays/internal/session"
)

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     *Error `json:"error,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("write json failed", "err", err)
	}
}

func Success(w http.ResponseWriter, data any, requestID string) {
	WriteJSON(w, http.StatusOK, Envelope{Success: true, Data: data, RequestID: requestID})
}

func Created(w http.ResponseWriter, data any, requestID string) {
	WriteJSON(w, http.StatusCreated, Envelope{Success: true, Data: data, RequestID: requestID})
}

func Fail(w http.ResponseWriter, status int, code, message, requestID string) {
	WriteJSON(w, status, Envelope{Success: false, Error: &Error{Code: code, Message: message}, RequestID: requestID})
}

// FailFromError maps domain errors onto the response taxonomy so every
// store-layer failure materializes as a user-facing message instead of
// passing the boundary silently.
func FailFromError(w http.ResponseWriter, err error, requestID string) {
	var vErr *leave.ValidationError
	switch {
	case errors.As(err, &vErr):
		Fail(w, http.StatusBadRequest, "invalid_payload", vErr.Error(), requestID)
	case errors.Is(err, leave.ErrNotFound):
		Fail(w, http.StatusNotFound, "not_found", "leave request not found", requestID)
	case errors.Is(err, leave.ErrInvalidState):
		Fail(w, http.StatusConflict, "invalid_state", err.Error(), requestID)
	case errors.Is(err, leave.ErrSyncFailed):
		Fail(w, http.StatusBadGateway, "sync_failed", "remote persist failed, local change reverted", requestID)
	case errors.Is(err, leave.ErrLoadFailed):
		Fail(w, http.StatusServiceUnavailable, "load_failed", "leave data could not be loaded", requestID)
	case errors.Is(err, session.ErrNoSession):
		Fail(w, http.StatusUnauthorized, "no_session", "session required", requestID)
	default:
		Fail(w, http.StatusInternalServerError, "internal", "internal error", requestID)
	}
}
