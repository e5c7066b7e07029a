package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"expensetracker/internal/auth"
	"expensetracker/internal/errors"
	"expensetracker/internal/model"
	"expensetracker/internal/service"
)

// ExpenseHandler handles expense endpoints.
type ExpenseHandler struct {
	svc service.ExpenseService
}

// NewExpenseHandler creates a new expense handler.
func NewExpenseHandler(svc service.ExpenseService) *ExpenseHandler {
	return &ExpenseHandler{svc: svc}
}

// ExpenseRequest is the payload for creating or updating an expense. Amount
// accepts a JSON number or a numeric string.
type ExpenseRequest struct {
	CategoryID  uint            `json:"categoryId" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty" validate:"max=255"`
	Date        string          `json:"date" validate:"required"`
}

func (r ExpenseRequest) input() service.ExpenseInput {
	return service.ExpenseInput{
		CategoryID:  r.CategoryID,
		Amount:      r.Amount.String(),
		Description: r.Description,
		Date:        r.Date,
	}
}

// ownerScope is the user whose expenses the session may touch; zero for admins.
func ownerScope(claims *auth.Claims) uint {
	if isAdmin(claims) {
		return 0
	}
	return sessionUserID(claims)
}

// listFilter reads from, to and categoryId. Admins may pass userId to look at
// another user; everyone else only sees their own expenses.
func listFilter(c echo.Context, claims *auth.Claims) (model.ExpenseFilter, error) {
	filter := model.ExpenseFilter{
		UserID: sessionUserID(claims),
		From:   c.QueryParam("from"),
		To:     c.QueryParam("to"),
	}

	if raw := c.QueryParam("categoryId"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return filter, invalidQuery("categoryId")
		}
		filter.CategoryID = uint(id)
	}

	if raw := c.QueryParam("userId"); raw != "" {
		if !isAdmin(claims) {
			return filter, errorResponse(errors.ErrForbidden)
		}
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return filter, invalidQuery("userId")
		}
		filter.UserID = uint(id)
	}
	return filter, nil
}

func invalidQuery(name string) error {
	return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
		Error: "invalid " + name,
		Code:  "INVALID_QUERY",
	})
}

// ListExpenses godoc
// @Summary List expenses
// @Tags expenses
// @Produce json
// @Security BearerAuth
// @Param from query string false "First date (YYYY-MM-DD)"
// @Param to query string false "Last date (YYYY-MM-DD)"
// @Param categoryId query int false "Category ID"
// @Param userId query int false "User ID (admin only)"
// @Success 200 {array} model.Expense
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /expenses [get]
func (h *ExpenseHandler) ListExpenses(c echo.Context) error {
	claims, err := ValidateAuthentication(c)
	if err != nil {
		return err
	}
	filter, err := listFilter(c, claims)
	if err != nil {
		return err
	}

	expenses, err := h.svc.ListExpenses(c.Request().Context(), filter)
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusOK, expenses)
}

// Summary godoc
// @Summary Expense totals per category and month
// @Tags expenses
// @Produce json
// @Security BearerAuth
// @Param from query string false "First date (YYYY-MM-DD)"
// @Param to query string false "Last date (YYYY-MM-DD)"
// @Param categoryId query int false "Category ID"
// @Param userId query int false "User ID (admin only)"
// @Success 200 {object} model.ExpenseSummary
// @Failure 400 {object} errors.ErrorResponse
// @Router /expenses/summary [get]
func (h *ExpenseHandler) Summary(c echo.Context) error {
	claims, err := ValidateAuthentication(c)
	if err != nil {
		return err
	}
	filter, err := listFilter(c, claims)
	if err != nil {
		return err
	}

	summary, err := h.svc.Summary(c.Request().Context(), filter)
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusOK, summary)
}

// GetExpense godoc
// @Summary Get expense by id
// @Tags expenses
// @Produce json
// @Security BearerAuth
// @Param id path int true "Expense ID"
// @Success 200 {object} model.Expense
// @Failure 404 {object} errors.ErrorResponse
// @Router /expenses/{id} [get]
func (h *ExpenseHandler) GetExpense(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	claims, err := ValidateAuthentication(c)
	if err != nil {
		return err
	}

	expense, err := h.svc.GetExpense(c.Request().Context(), id, ownerScope(claims))
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusOK, expense)
}

// CreateExpense godoc
// @Summary Record an expense
// @Tags expenses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ExpenseRequest true "Expense"
// @Success 201 {object} model.Expense
// @Failure 400 {object} errors.ErrorResponse
// @Router /expenses [post]
func (h *ExpenseHandler) CreateExpense(c echo.Context) error {
	claims, err := ValidateAuthentication(c)
	if err != nil {
		return err
	}

	var req ExpenseRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	expense, err := h.svc.CreateExpense(c.Request().Context(), sessionUserID(claims), req.input())
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusCreated, expense)
}

// UpdateExpense godoc
// @Summary Update an expense
// @Tags expenses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Expense ID"
// @Param request body ExpenseRequest true "Expense"
// @Success 200 {object} model.Expense
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /expenses/{id} [put]
func (h *ExpenseHandler) UpdateExpense(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	claims, err := ValidateAuthentication(c)
	if err != nil {
		return err
	}

	var req ExpenseRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	expense, err := h.svc.UpdateExpense(c.Request().Context(), id, ownerScope(claims), req.input())
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusOK, expense)
}

// DeleteExpense godoc
// @Summary Delete an expense
// @Tags expenses
// @Security BearerAuth
// @Param id path int true "Expense ID"
// @Success 204
// @Failure 404 {object} errors.ErrorResponse
// @Router /expenses/{id} [delete]
func (h *ExpenseHandler) DeleteExpense(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	claims, err := ValidateAuthentication(c)
	if err != nil {
		return err
	}

	if err := h.svc.DeleteExpense(c.Request().Context(), id, ownerScope(claims)); err != nil {
		return errorResponse(err)
	}
	return c.NoContent(http.StatusNoContent)
}
