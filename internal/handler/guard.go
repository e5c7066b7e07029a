package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"expensetracker/internal/auth"
	"expensetracker/internal/errors"
	"expensetracker/internal/model"
)

// ContextKeyClaims is where the bearer middleware stores the session claims.
const ContextKeyClaims = "claims"

// ValidateAuthentication returns the session claims or a 401 error.
func ValidateAuthentication(c echo.Context) (*auth.Claims, error) {
	claims, ok := c.Get(ContextKeyClaims).(*auth.Claims)
	if !ok || claims == nil {
		return nil, errorResponse(errors.ErrUnauthorized)
	}
	if _, ok := claims.UserID(); !ok {
		return nil, errorResponse(errors.ErrUnauthorized)
	}
	return claims, nil
}

// ValidateAdminAuth accepts only sessions whose role claim is ADMIN. The
// role is read from the token, not from the database.
func ValidateAdminAuth(c echo.Context) (*auth.Claims, error) {
	claims, err := ValidateAuthentication(c)
	if err != nil {
		return nil, err
	}
	if !isAdmin(claims) {
		return nil, errorResponse(errors.ErrForbidden)
	}
	return claims, nil
}

// ValidateOwnerOrAdmin accepts the owner of a resource or any admin.
func ValidateOwnerOrAdmin(c echo.Context, ownerID uint) (*auth.Claims, error) {
	claims, err := ValidateAuthentication(c)
	if err != nil {
		return nil, err
	}
	if isAdmin(claims) {
		return claims, nil
	}
	if id, _ := claims.UserID(); id != ownerID {
		return nil, errorResponse(errors.ErrForbidden)
	}
	return claims, nil
}

func isAdmin(claims *auth.Claims) bool {
	return claims.Role == string(model.RoleAdmin)
}

func sessionUserID(claims *auth.Claims) uint {
	id, _ := claims.UserID()
	return id
}

// errorResponse converts a domain error to an echo error. The cause stays
// attached as the internal error so the request log shows it.
func errorResponse(err error) error {
	httpErr := errors.MapErrorToHTTP(err)
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse()).SetInternal(err)
}

func parseID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid " + name,
			Code:  "INVALID_ID",
		})
	}
	return uint(id), nil
}

// bindAndValidate decodes the request body into req and runs the struct validator.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid request body",
			Code:  "INVALID_REQUEST",
		})
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: err.Error(),
			Code:  "VALIDATION_ERROR",
		})
	}
	return nil
}
