package dto

import (
	"errors"
	"net/http"

	"github.com/homeservices/backend/internal/domain/shared"
)

// Error codes raised by the HTTP layer itself, before a request reaches a service
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "BAD_REQUEST"
	// ErrCodeInvalidJSON is used when the request body is not valid JSON
	ErrCodeInvalidJSON = "INVALID_JSON"
	// ErrCodeInvalidID is used when a path id is not a UUID
	ErrCodeInvalidID = "INVALID_ID"
	// ErrCodeRequestTooLarge is used when the body exceeds the configured limit
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	// ErrCodeRateLimited is used when the client exceeded its request budget
	ErrCodeRateLimited = "RATE_LIMIT_EXCEEDED"
	// ErrCodeInternal is used for errors outside the domain taxonomy
	ErrCodeInternal = "INTERNAL_ERROR"
	// ErrCodeServiceUnavailable is used when a dependency failed its health check
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes.
// Domain codes missing from this table fall back to the status of their taxonomy kind.
var ErrorCodeHTTPStatus = map[string]int{
	// Taxonomy kinds
	shared.CodeValidation: http.StatusBadRequest,
	shared.CodeConflict:   http.StatusConflict,
	shared.CodeNotFound:   http.StatusNotFound,
	shared.CodeNetwork:    http.StatusServiceUnavailable,

	// HTTP layer
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeInvalidJSON:        http.StatusBadRequest,
	ErrCodeInvalidID:          http.StatusBadRequest,
	ErrCodeRequestTooLarge:    http.StatusRequestEntityTooLarge,
	ErrCodeRateLimited:        http.StatusTooManyRequests,
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// StatusForError returns the HTTP status for any error. Domain errors are looked up by
// code first, so a specific code like INVALID_PARENT answers with the status of its kind.
func StatusForError(err error) int {
	var de *shared.DomainError
	if !errors.As(err, &de) {
		return http.StatusInternalServerError
	}
	if status, ok := ErrorCodeHTTPStatus[de.Code]; ok {
		return status
	}
	return GetHTTPStatus(de.Kind())
}
