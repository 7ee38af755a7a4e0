package errors

import (
	"fmt"
	"net/http"
)

// ErrorCode is the stable machine-readable code returned in error responses.
type ErrorCode string

const (
	ErrCodeBadRequest   ErrorCode = "BAD_REQUEST"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeNotFound     ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
)

// AppError carries an error code and the HTTP status it translates to.
// Services return *AppError at their boundary; the handler layer translates
// it exactly once.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
	Status  int
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewBadRequest creates a "bad request" error (malformed input, 400).
func NewBadRequest(message string) *AppError {
	return &AppError{
		Code:    ErrCodeBadRequest,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

// NewUnauthorized creates an "unauthorized" error (bad credentials or token, 401).
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:    ErrCodeUnauthorized,
		Message: message,
		Status:  http.StatusUnauthorized,
	}
}

// NewForbidden creates a "forbidden" error (valid identity, disallowed action, 403).
func NewForbidden(message string) *AppError {
	return &AppError{
		Code:    ErrCodeForbidden,
		Message: message,
		Status:  http.StatusForbidden,
	}
}

// NewNotFound creates a "resource not found" error (404).
func NewNotFound(resource string) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Status:  http.StatusNotFound,
	}
}

// NewConflict creates a "conflict" error (e.g. duplicate email, 409).
func NewConflict(message string) *AppError {
	return &AppError{
		Code:    ErrCodeConflict,
		Message: message,
		Status:  http.StatusConflict,
	}
}

// NewInvalidInput creates a schema validation error (422).
func NewInvalidInput(message string) *AppError {
	return &AppError{
		Code:    ErrCodeInvalidInput,
		Message: message,
		Status:  http.StatusUnprocessableEntity,
	}
}

// NewInternal creates an "internal server" error (500).
func NewInternal(message string) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
		Status:  http.StatusInternalServerError,
	}
}

// Wrap attaches an underlying error to a new AppError.
func Wrap(err error, code ErrorCode, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Status:  status,
	}
}
