package dto

import (
	"net/http"

	"github.com/propflow/backend/internal/domain/shared"
)

// Error codes surfaced by the API. Domain codes pass through unchanged so
// clients see the same taxonomy the services raise.
const (
	ErrCodeUnauthenticated        = shared.CodeUnauthenticated
	ErrCodeForbidden              = shared.CodeForbidden
	ErrCodeNotFound               = shared.CodeNotFound
	ErrCodeConflict               = shared.CodeConflict
	ErrCodeValidation             = shared.CodeValidationFailed
	ErrCodeDependencyFailure      = shared.CodeDependencyFailure
	ErrCodeConcurrentModification = shared.CodeConcurrentModification
)

// Transport-level codes with no domain counterpart
const (
	// ErrCodeInternal is used for unexpected failures
	ErrCodeInternal = "INTERNAL"
	// ErrCodeBadRequest is used for malformed bodies and path parameters
	ErrCodeBadRequest = "BAD_REQUEST"
	// ErrCodeRateLimited is used when a client exceeds its request budget
	ErrCodeRateLimited = "RATE_LIMITED"
	// ErrCodeRequestTooLarge is used when a body exceeds the configured limit
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnauthenticated:        http.StatusUnauthorized,
	ErrCodeForbidden:              http.StatusForbidden,
	ErrCodeNotFound:               http.StatusNotFound,
	ErrCodeConflict:               http.StatusConflict,
	ErrCodeValidation:             http.StatusBadRequest,
	ErrCodeDependencyFailure:      http.StatusBadGateway,
	ErrCodeConcurrentModification: http.StatusConflict,

	ErrCodeInternal:        http.StatusInternalServerError,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeRateLimited:     http.StatusTooManyRequests,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
