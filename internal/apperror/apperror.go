// Package apperror defines the error taxonomy shared by services and
// handlers and its mapping onto HTTP status codes.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel classes.  Every AppError wraps exactly one of them so callers
// can classify with errors.Is.
var (
	ErrValidation     = errors.New("validation error")
	ErrConflict       = errors.New("conflict")
	ErrAuthentication = errors.New("authentication error")
	ErrAuthorization  = errors.New("authorization error")
	ErrNotFound       = errors.New("not found")
	ErrTransient      = errors.New("transient store error")
)

// AppError carries a client-safe message and the HTTP status it maps to.
// Err is the class sentinel or the underlying cause; it is never rendered.
type AppError struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// Validation creates a 400 error.
func Validation(message string) *AppError {
	return &AppError{Code: "VALIDATION", Message: message, Status: http.StatusBadRequest, Err: ErrValidation}
}

// Conflict creates a 409 error.
func Conflict(message string) *AppError {
	return &AppError{Code: "CONFLICT", Message: message, Status: http.StatusConflict, Err: ErrConflict}
}

// Unauthenticated creates a 401 error.  The message must not reveal which
// credential was wrong.
func Unauthenticated(message string) *AppError {
	return &AppError{Code: "UNAUTHENTICATED", Message: message, Status: http.StatusUnauthorized, Err: ErrAuthentication}
}

// Forbidden creates a 403 error.
func Forbidden(message string) *AppError {
	return &AppError{Code: "FORBIDDEN", Message: message, Status: http.StatusForbidden, Err: ErrAuthorization}
}

// InsufficientGrant is the 403 raised by the authorize gate.
func InsufficientGrant(resource, scope string) *AppError {
	return Forbidden(fmt.Sprintf("Forbidden: Insufficient permissions for resource %q with scope %q", resource, scope))
}

// NotFound creates a 404 error.
func NotFound(message string) *AppError {
	return &AppError{Code: "NOT_FOUND", Message: message, Status: http.StatusNotFound, Err: ErrNotFound}
}

// Internal wraps a store or crypto failure.  The cause is kept for server
// logs only; clients see a fixed message.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL",
		Message: "Internal server error",
		Status:  http.StatusInternalServerError,
		Err:     fmt.Errorf("%w: %w", ErrTransient, err),
	}
}

// HTTPStatus returns the status code for err.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, ErrAuthorization):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the text that may be shown to a client.
func PublicMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "Internal server error"
}
