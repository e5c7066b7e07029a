package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapErrorToHTTP(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid credentials", ErrInvalidCredentials, http.StatusBadRequest, "INVALID_CREDENTIALS"},
		{"not activated", ErrUserNotActivated, http.StatusForbidden, "USER_NOT_ACTIVATED"},
		{"wrapped not found", fmt.Errorf("get user: %w", ErrUserNotFound), http.StatusNotFound, "USER_NOT_FOUND"},
		{"duplicate username", ErrUsernameTaken, http.StatusConflict, "USERNAME_TAKEN"},
		{"default admin", ErrDefaultAdminProtected, http.StatusForbidden, "DEFAULT_ADMIN_PROTECTED"},
		{"setup complete", ErrSetupAlreadyComplete, http.StatusConflict, "SETUP_ALREADY_COMPLETE"},
		{"lost consume race folds into invalid token", ErrTokenAlreadyUsed, http.StatusBadRequest, "INVALID_TOKEN"},
		{"unknown expense category is a bad request", ErrInvalidCategory, http.StatusBadRequest, "INVALID_CATEGORY"},
		{"unknown error hides detail", errors.New("sqlite: disk I/O error"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpErr := MapErrorToHTTP(tt.err)
			assert.Equal(t, tt.status, httpErr.StatusCode)
			assert.Equal(t, tt.code, httpErr.Code)
		})
	}
}

func TestMapErrorToHTTP_PasswordPolicy(t *testing.T) {
	err := fmt.Errorf("set password: %w", &PasswordPolicyError{Violations: []string{"a", "b"}})

	httpErr := MapErrorToHTTP(err)

	assert.Equal(t, http.StatusBadRequest, httpErr.StatusCode)
	assert.Equal(t, "WEAK_PASSWORD", httpErr.Code)
	resp := httpErr.ToErrorResponse()
	assert.Equal(t, []string{"a", "b"}, resp.Details)
}

func TestMapErrorToHTTP_UnknownMessageIsGeneric(t *testing.T) {
	httpErr := MapErrorToHTTP(errors.New("UNIQUE constraint failed: users.username"))
	assert.Equal(t, "internal server error", httpErr.Message)
}
