package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/boddenberg/project-portal-go/internal/domain"
	"github.com/boddenberg/project-portal-go/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

type errorResponse struct {
	Error         string                 `json:"error"`
	Notifications []service.Notification `json:"notifications,omitempty"`
}

// listResponse is the body of every hook-backed collection endpoint.
type listResponse[T any, S any] struct {
	Data          []T                    `json:"data"`
	Stats         S                      `json:"stats"`
	Notifications []service.Notification `json:"notifications,omitempty"`
}

// itemResponse wraps a single entity together with the raised notifications.
type itemResponse[T any] struct {
	Data          T                      `json:"data"`
	Notifications []service.Notification `json:"notifications,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// decodeJSON reads the request body into dst and answers 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// errorStatus maps domain errors to HTTP status codes.
func errorStatus(err error) int {
	var notFound *domain.ErrNotFound
	var circuitOpen *domain.ErrCircuitOpen
	var validation *domain.ErrValidation
	var forbidden *domain.ErrForbidden
	var unauthorized *domain.ErrUnauthorized
	var conflict *domain.ErrConflict

	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &unauthorized):
		return http.StatusUnauthorized
	case errors.As(err, &forbidden):
		return http.StatusForbidden
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &circuitOpen):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	status := errorStatus(err)
	switch status {
	case http.StatusNotFound, http.StatusBadRequest, http.StatusConflict:
		logger.Debug("request rejected", zap.Int("status", status), zap.String("error", err.Error()))
	case http.StatusUnauthorized, http.StatusForbidden:
		logger.Warn("access rejected", zap.Int("status", status), zap.String("error", err.Error()))
	case http.StatusServiceUnavailable:
		logger.Error("circuit breaker open", zap.Error(err))
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, status, "internal server error")
		return
	}
	writeError(w, status, err.Error())
}

// failedHook is the error surface shared by every hook.
type failedHook interface {
	ErrorMessage() string
	LastError() error
}

// writeHookFailure answers with the hook's stored message and the status of its
// last error.
func writeHookFailure(w http.ResponseWriter, h failedHook, rec *service.Recorder) {
	writeJSON(w, errorStatus(h.LastError()), errorResponse{
		Error:         h.ErrorMessage(),
		Notifications: rec.Notifications(),
	})
}
