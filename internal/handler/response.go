package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"clickearn/internal/service"
	"clickearn/internal/util"
)

// Detail is the uniform error envelope
type Detail struct {
	Detail string `json:"detail"`
}

// respondWithJSON sends a JSON response
func respondWithJSON(w http.ResponseWriter, logger *zap.Logger, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode JSON response", util.ErrorField(err))
	}
}

// respondWithError maps a service error onto the detail envelope
func respondWithError(w http.ResponseWriter, logger *zap.Logger, err error) {
	statusCode := getStatusCode(err)
	logger.Warn("HTTP error response",
		util.ErrorField(err),
		util.Int("status_code", statusCode),
	)
	respondWithJSON(w, logger, statusCode, Detail{Detail: publicDetail(err, statusCode)})
}

// getStatusCode determines the appropriate HTTP status code for an error.
// Every session failure collapses to 401 so callers cannot distinguish a
// missing session from a revoked one.
func getStatusCode(err error) int {
	switch {
	case errors.Is(err, service.ErrSessionRequired),
		errors.Is(err, service.ErrSessionInvalid),
		errors.Is(err, service.ErrSessionExpired),
		errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrAccountDisabled),
		errors.Is(err, service.ErrExternalAuth):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrDuplicateIdentity):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrInvalidPhone),
		errors.Is(err, service.ErrCodeInvalid),
		errors.Is(err, service.ErrCodeExpired),
		errors.Is(err, service.ErrQuotaExceeded),
		errors.Is(err, service.ErrWatchTooShort),
		errors.Is(err, service.ErrBelowMinimum),
		errors.Is(err, service.ErrInsufficientBalance):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrTooManyRequests):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// publicDetail keeps internal error chains out of 5xx bodies
func publicDetail(err error, statusCode int) string {
	if statusCode >= http.StatusInternalServerError {
		return "internal server error"
	}
	return err.Error()
}
