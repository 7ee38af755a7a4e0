package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

/*
AppError test cases:
1) Constructors map to the expected HTTP status and code
2) Error() includes the wrapped error when present
3) Unwrap exposes the underlying error to errors.Is
*/

func TestConstructors_StatusAndCode(t *testing.T) {
	cases := []struct {
		name   string
		err    *AppError
		status int
		code   ErrorCode
	}{
		{"bad request", NewBadRequest("malformed"), http.StatusBadRequest, ErrCodeBadRequest},
		{"unauthorized", NewUnauthorized("bad token"), http.StatusUnauthorized, ErrCodeUnauthorized},
		{"forbidden", NewForbidden("not allowed"), http.StatusForbidden, ErrCodeForbidden},
		{"not found", NewNotFound("user"), http.StatusNotFound, ErrCodeNotFound},
		{"conflict", NewConflict("email already in use"), http.StatusConflict, ErrCodeConflict},
		{"invalid input", NewInvalidInput("email is required"), http.StatusUnprocessableEntity, ErrCodeInvalidInput},
		{"internal", NewInternal("boom"), http.StatusInternalServerError, ErrCodeInternal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.status, tc.err.Status)
			assert.Equal(t, tc.code, tc.err.Code)
		})
	}
}

func TestNotFound_MessageFormat(t *testing.T) {
	assert.Equal(t, "user not found", NewNotFound("user").Message)
}

func TestError_IncludesWrapped(t *testing.T) {
	inner := fmt.Errorf("connection refused")
	err := Wrap(inner, ErrCodeInternal, "database error", http.StatusInternalServerError)

	assert.Contains(t, err.Error(), "database error")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestUnwrap(t *testing.T) {
	inner := errors.New("root cause")
	err := Wrap(inner, ErrCodeInternal, "wrapped", http.StatusInternalServerError)

	assert.True(t, errors.Is(err, inner))
}
