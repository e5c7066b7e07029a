package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrInvalidCredentials is returned when username or password is incorrect.
	ErrInvalidCredentials = errors.New("Invalid credentials")
	// ErrUserNotActivated is returned when a user logs in before setting a password.
	ErrUserNotActivated = errors.New("User not activated")
	// ErrUnauthorized is returned when the session token is missing, invalid or expired.
	ErrUnauthorized = errors.New("authentication required")
	// ErrForbidden is returned when the session is valid but lacks the required role or ownership.
	ErrForbidden = errors.New("access denied")
	// ErrUserNotFound is returned when a user id does not resolve.
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameTaken is returned when the username already exists, ignoring case.
	ErrUsernameTaken = errors.New("username already exists")
	// ErrDefaultAdminProtected is returned on attempts to delete or modify the default admin.
	ErrDefaultAdminProtected = errors.New("the default admin account cannot be modified or deleted")
	// ErrSetupAlreadyComplete is returned when setup-admin runs after the default admin is active.
	ErrSetupAlreadyComplete = errors.New("admin setup already completed")
	// ErrDefaultAdminMissing is returned when setup-admin runs before bootstrap created the account.
	ErrDefaultAdminMissing = errors.New("default admin account does not exist")
	// ErrInvalidToken is the generic answer for unknown, used or expired first-time tokens.
	ErrInvalidToken = errors.New("Invalid or expired token")
	// ErrTokenNotFound is returned by admin-facing token lookups.
	ErrTokenNotFound = errors.New("token not found")
	// ErrTokenAlreadyUsed is returned when a token was consumed concurrently.
	ErrTokenAlreadyUsed = errors.New("token already used")
	// ErrWrongPassword is returned when the current password does not match on change-password.
	ErrWrongPassword = errors.New("current password is incorrect")
	// ErrCategoryNotFound is returned when a category id does not resolve.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrCategoryExists is returned on duplicate category names.
	ErrCategoryExists = errors.New("category already exists")
	// ErrCategoryInUse is returned when deleting a category that still has expenses.
	ErrCategoryInUse = errors.New("category still has expenses")
	// ErrInvalidCategory is returned when an expense references a category that does not exist.
	ErrInvalidCategory = errors.New("unknown category")
	// ErrExpenseNotFound is returned when an expense id does not resolve or is not visible.
	ErrExpenseNotFound = errors.New("expense not found")
	// ErrInvalidAmount is returned when amount is invalid.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInvalidDate is returned when a date is not in YYYY-MM-DD form or a range is inverted.
	ErrInvalidDate = errors.New("invalid date")
)

// PasswordPolicyError carries every violated password rule.
type PasswordPolicyError struct {
	Violations []string
}

func (e *PasswordPolicyError) Error() string {
	return "password does not meet complexity requirements"
}

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Code    string   `json:"code"`
	Details []string `json:"details,omitempty"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
	Details    []string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error:   e.Message,
		Code:    e.Code,
		Details: e.Details,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors.
func MapErrorToHTTP(err error) *HTTPError {
	var policyErr *PasswordPolicyError
	if errors.As(err, &policyErr) {
		httpErr := NewHTTPError(http.StatusBadRequest, policyErr.Error(), "WEAK_PASSWORD")
		httpErr.Details = policyErr.Violations
		return httpErr
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return NewHTTPError(http.StatusBadRequest, ErrInvalidCredentials.Error(), "INVALID_CREDENTIALS")
	case errors.Is(err, ErrUserNotActivated):
		return NewHTTPError(http.StatusForbidden, ErrUserNotActivated.Error(), "USER_NOT_ACTIVATED")
	case errors.Is(err, ErrUnauthorized):
		return NewHTTPError(http.StatusUnauthorized, ErrUnauthorized.Error(), "UNAUTHORIZED")
	case errors.Is(err, ErrForbidden):
		return NewHTTPError(http.StatusForbidden, ErrForbidden.Error(), "FORBIDDEN")
	case errors.Is(err, ErrUserNotFound):
		return NewHTTPError(http.StatusNotFound, ErrUserNotFound.Error(), "USER_NOT_FOUND")
	case errors.Is(err, ErrUsernameTaken):
		return NewHTTPError(http.StatusConflict, ErrUsernameTaken.Error(), "USERNAME_TAKEN")
	case errors.Is(err, ErrDefaultAdminProtected):
		return NewHTTPError(http.StatusForbidden, ErrDefaultAdminProtected.Error(), "DEFAULT_ADMIN_PROTECTED")
	case errors.Is(err, ErrSetupAlreadyComplete):
		return NewHTTPError(http.StatusConflict, ErrSetupAlreadyComplete.Error(), "SETUP_ALREADY_COMPLETE")
	case errors.Is(err, ErrDefaultAdminMissing):
		return NewHTTPError(http.StatusConflict, ErrDefaultAdminMissing.Error(), "DEFAULT_ADMIN_MISSING")
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrTokenAlreadyUsed):
		return NewHTTPError(http.StatusBadRequest, ErrInvalidToken.Error(), "INVALID_TOKEN")
	case errors.Is(err, ErrTokenNotFound):
		return NewHTTPError(http.StatusNotFound, ErrTokenNotFound.Error(), "TOKEN_NOT_FOUND")
	case errors.Is(err, ErrWrongPassword):
		return NewHTTPError(http.StatusBadRequest, ErrWrongPassword.Error(), "WRONG_PASSWORD")
	case errors.Is(err, ErrCategoryNotFound):
		return NewHTTPError(http.StatusNotFound, ErrCategoryNotFound.Error(), "CATEGORY_NOT_FOUND")
	case errors.Is(err, ErrCategoryExists):
		return NewHTTPError(http.StatusConflict, ErrCategoryExists.Error(), "CATEGORY_EXISTS")
	case errors.Is(err, ErrCategoryInUse):
		return NewHTTPError(http.StatusConflict, ErrCategoryInUse.Error(), "CATEGORY_IN_USE")
	case errors.Is(err, ErrInvalidCategory):
		return NewHTTPError(http.StatusBadRequest, ErrInvalidCategory.Error(), "INVALID_CATEGORY")
	case errors.Is(err, ErrExpenseNotFound):
		return NewHTTPError(http.StatusNotFound, ErrExpenseNotFound.Error(), "EXPENSE_NOT_FOUND")
	case errors.Is(err, ErrInvalidAmount):
		return NewHTTPError(http.StatusBadRequest, ErrInvalidAmount.Error(), "INVALID_AMOUNT")
	case errors.Is(err, ErrInvalidDate):
		return NewHTTPError(http.StatusBadRequest, ErrInvalidDate.Error(), "INVALID_DATE")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
