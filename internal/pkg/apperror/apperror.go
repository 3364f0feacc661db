package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrAuthentication     = errors.New("authentication failed")
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrTransactionAborted = errors.New("transaction aborted")
)

// AppError carries one of the sentinel kinds above plus an optional cause.
// errors.Is matches both the kind and anything in the cause chain.
type AppError struct {
	Err     error
	Message string
	Field   string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func Authentication(message string) *AppError {
	return &AppError{Err: ErrAuthentication, Message: message}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{Err: ErrValidation, Message: message, Field: field}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

// Conflict signals a unique-constraint race. Callers should retry the read-then-write.
func Conflict(resource string, cause error) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: resource + " conflict",
		Cause:   cause,
	}
}

// TransactionAborted wraps an unexpected failure inside a transaction. Errors that
// already belong to the taxonomy are returned unchanged.
func TransactionAborted(op string, cause error) error {
	if cause == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(cause, &appErr) {
		return cause
	}
	return &AppError{
		Err:     ErrTransactionAborted,
		Message: op,
		Cause:   cause,
	}
}

// PublicMessage returns a message that is safe to show to a caller. Unexpected
// failures collapse to a generic text.
func PublicMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && !errors.Is(err, ErrTransactionAborted) {
		return appErr.Message
	}
	return "internal error"
}

// HTTPStatus maps an error to the status used by UI-facing endpoints.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Code is the machine-readable error name used in JSON bodies.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrAuthentication):
		return "authentication_failed"
	case errors.Is(err, ErrValidation):
		return "validation_failed"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "internal_error"
	}
}
