package errors

import "net/http"

// Error code constants shared by every component of the scaffold.
// Handlers raise typed errors and return; the global error handler is the
// only place these are mapped onto an HTTP response body.

// Request/validation error codes.
const (
	CodeValidationError = "VALIDATION_ERROR"
	CodeBadRequest      = "BAD_REQUEST"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeNotFound        = "NOT_FOUND"
)

// Database error codes.
const (
	CodeDatabaseValidation = "DATABASE_VALIDATION_ERROR"
	CodeDatabaseConflict   = "DATABASE_CONFLICT_ERROR"
	CodeDatabase           = "DATABASE_ERROR"
)

// Server error codes.
const (
	CodeInternal = "INTERNAL_SERVER_ERROR"
)

// CodeForStatus returns the canonical error code for an HTTP status carried
// by an error that does not declare its own code.
func CodeForStatus(status int) string {
	switch {
	case status == http.StatusUnauthorized:
		return CodeUnauthorized
	case status == http.StatusForbidden:
		return CodeForbidden
	case status == http.StatusNotFound:
		return CodeNotFound
	case status >= http.StatusInternalServerError:
		return CodeInternal
	default:
		return CodeBadRequest
	}
}
