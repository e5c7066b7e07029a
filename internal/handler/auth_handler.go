package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"expensetracker/internal/errors"
	"expensetracker/internal/model"
	"expensetracker/internal/service"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents an authentication response.
type LoginResponse struct {
	Token     string      `json:"token"`
	Type      string      `json:"type"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      *model.User `json:"user"`
}

// PasswordRequest carries a new password for setup-admin and set-password.
type PasswordRequest struct {
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirmPassword,omitempty" validate:"omitempty,eqfield=Password"`
}

// SetupRequiredResponse tells the frontend whether the admin setup screen is needed.
type SetupRequiredResponse struct {
	SetupRequired bool `json:"setupRequired"`
}

// TokenValidationResponse describes a first-time token without consuming it.
type TokenValidationResponse struct {
	Valid     bool       `json:"valid"`
	Username  string     `json:"username,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string      `json:"message"`
	User    *model.User `json:"user,omitempty"`
}

// Login godoc
// @Summary Login user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.authService.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return errorResponse(err)
	}

	return c.JSON(http.StatusOK, LoginResponse{
		Token:     result.Token,
		Type:      "Bearer",
		ExpiresAt: result.ExpiresAt,
		User:      result.User,
	})
}

// Logout godoc
// @Summary Logout user
// @Description Sessions are stateless; the client discards its token. Always succeeds.
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} MessageResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	h.authService.Logout(c.Request().Context(), token)

	return c.JSON(http.StatusOK, MessageResponse{Message: "logged out successfully"})
}

// Me godoc
// @Summary Current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.User
// @Failure 401 {object} errors.ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	claims, err := ValidateAuthentication(c)
	if err != nil {
		return err
	}

	user, err := h.authService.CurrentUser(c.Request().Context(), sessionUserID(claims))
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusOK, user)
}

// SetupRequired godoc
// @Summary Whether the default admin still needs a password
// @Tags auth
// @Produce json
// @Success 200 {object} SetupRequiredResponse
// @Router /auth/setup-required [get]
func (h *AuthHandler) SetupRequired(c echo.Context) error {
	required, err := h.authService.SetupRequired(c.Request().Context())
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusOK, SetupRequiredResponse{SetupRequired: required})
}

// SetupAdmin godoc
// @Summary Set the default admin password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body PasswordRequest true "New password"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /auth/setup-admin [post]
func (h *AuthHandler) SetupAdmin(c echo.Context) error {
	var req PasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	admin, err := h.authService.SetupAdmin(c.Request().Context(), req.Password)
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "admin setup completed", User: admin})
}

// SetPassword godoc
// @Summary Set the first password with a first-time token
// @Tags auth
// @Accept json
// @Produce json
// @Param token path string true "First-time login token"
// @Param request body PasswordRequest true "New password"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /auth/set-password/{token} [post]
func (h *AuthHandler) SetPassword(c echo.Context) error {
	var req PasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.authService.SetPassword(c.Request().Context(), c.Param("token"), req.Password)
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "password set successfully", User: user})
}

// ValidateToken godoc
// @Summary Check a first-time token without consuming it
// @Tags auth
// @Produce json
// @Param token path string true "First-time login token"
// @Success 200 {object} TokenValidationResponse
// @Failure 400 {object} TokenValidationResponse
// @Router /auth/validate-token/{token} [get]
func (h *AuthHandler) ValidateToken(c echo.Context) error {
	v := h.authService.ValidateSetupToken(c.Request().Context(), c.Param("token"))
	if !v.Valid {
		return c.JSON(http.StatusBadRequest, TokenValidationResponse{
			Valid: false,
			Error: errors.ErrInvalidToken.Error(),
		})
	}

	expiresAt := v.Token.ExpiresAt
	return c.JSON(http.StatusOK, TokenValidationResponse{
		Valid:     true,
		Username:  v.User.Username,
		ExpiresAt: &expiresAt,
	})
}
