package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	apperrors "expensetracker/internal/errors"
	"expensetracker/internal/model"
	"expensetracker/internal/repository"
)

// ExpenseInput is the writable part of an expense. Amount is a decimal string.
type ExpenseInput struct {
	CategoryID  uint
	Amount      string
	Description string
	Date        string
}

// ExpenseService manages expenses. ownerID restricts every lookup to the
// expenses of that user; zero means any user (administrators).
type ExpenseService interface {
	ListExpenses(ctx context.Context, filter model.ExpenseFilter) ([]model.Expense, error)
	GetExpense(ctx context.Context, id, ownerID uint) (*model.Expense, error)
	CreateExpense(ctx context.Context, userID uint, input ExpenseInput) (*model.Expense, error)
	UpdateExpense(ctx context.Context, id, ownerID uint, input ExpenseInput) (*model.Expense, error)
	DeleteExpense(ctx context.Context, id, ownerID uint) error
	Summary(ctx context.Context, filter model.ExpenseFilter) (*model.ExpenseSummary, error)
}

type expenseService struct {
	store repository.Store
	log   logrus.FieldLogger
}

// NewExpenseService creates a new expense service.
func NewExpenseService(store repository.Store, log logrus.FieldLogger) ExpenseService {
	return &expenseService{store: store, log: log}
}

func (s *expenseService) ListExpenses(ctx context.Context, filter model.ExpenseFilter) ([]model.Expense, error) {
	if err := validateRange(filter.From, filter.To); err != nil {
		return nil, err
	}
	expenses, err := s.store.Repos().Expenses.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

func (s *expenseService) GetExpense(ctx context.Context, id, ownerID uint) (*model.Expense, error) {
	return s.findVisible(ctx, s.store.Repos(), id, ownerID)
}

// findVisible hides expenses of other users behind ErrExpenseNotFound.
func (s *expenseService) findVisible(ctx context.Context, repos repository.Repositories, id, ownerID uint) (*model.Expense, error) {
	expense, err := repos.Expenses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrExpenseNotFound
		}
		return nil, fmt.Errorf("find expense: %w", err)
	}
	if ownerID != 0 && expense.UserID != ownerID {
		return nil, apperrors.ErrExpenseNotFound
	}
	return expense, nil
}

func (s *expenseService) CreateExpense(ctx context.Context, userID uint, input ExpenseInput) (*model.Expense, error) {
	amount, date, err := parseExpenseInput(input)
	if err != nil {
		return nil, err
	}

	expense := &model.Expense{
		UserID:      userID,
		CategoryID:  input.CategoryID,
		Amount:      amount,
		Description: strings.TrimSpace(input.Description),
		Date:        date,
	}

	err = s.store.WithTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		category, err := findExpenseCategory(ctx, repos, input.CategoryID)
		if err != nil {
			return err
		}
		if err := repos.Expenses.Create(ctx, expense); err != nil {
			return fmt.Errorf("create expense: %w", err)
		}
		expense.Category = *category
		return nil
	})
	if err != nil {
		return nil, err
	}
	return expense, nil
}

func (s *expenseService) UpdateExpense(ctx context.Context, id, ownerID uint, input ExpenseInput) (*model.Expense, error) {
	amount, date, err := parseExpenseInput(input)
	if err != nil {
		return nil, err
	}

	var expense *model.Expense
	err = s.store.WithTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		expense, err = s.findVisible(ctx, repos, id, ownerID)
		if err != nil {
			return err
		}
		category, err := findExpenseCategory(ctx, repos, input.CategoryID)
		if err != nil {
			return err
		}

		expense.CategoryID = input.CategoryID
		expense.Amount = amount
		expense.Description = strings.TrimSpace(input.Description)
		expense.Date = date
		if err := repos.Expenses.Update(ctx, expense); err != nil {
			return fmt.Errorf("update expense: %w", err)
		}
		expense.Category = *category
		return nil
	})
	if err != nil {
		return nil, err
	}
	return expense, nil
}

func (s *expenseService) DeleteExpense(ctx context.Context, id, ownerID uint) error {
	return s.store.WithTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if _, err := s.findVisible(ctx, repos, id, ownerID); err != nil {
			return err
		}
		return repos.Expenses.Delete(ctx, id)
	})
}

// Summary totals the matching expenses per category and per month.
func (s *expenseService) Summary(ctx context.Context, filter model.ExpenseFilter) (*model.ExpenseSummary, error) {
	expenses, err := s.ListExpenses(ctx, filter)
	if err != nil {
		return nil, err
	}
	return summarize(filter, expenses), nil
}

func summarize(filter model.ExpenseFilter, expenses []model.Expense) *model.ExpenseSummary {
	summary := &model.ExpenseSummary{
		From:       filter.From,
		To:         filter.To,
		Total:      decimal.Zero,
		ByCategory: []model.CategoryTotal{},
		ByMonth:    []model.MonthTotal{},
	}

	byCategory := make(map[uint]*model.CategoryTotal)
	byMonth := make(map[string]*model.MonthTotal)
	for _, e := range expenses {
		summary.Total = summary.Total.Add(e.Amount)
		summary.Count++

		ct, ok := byCategory[e.CategoryID]
		if !ok {
			ct = &model.CategoryTotal{CategoryID: e.CategoryID, CategoryName: e.Category.Name, Total: decimal.Zero}
			byCategory[e.CategoryID] = ct
		}
		ct.Total = ct.Total.Add(e.Amount)
		ct.Count++

		month := e.Date[:7]
		mt, ok := byMonth[month]
		if !ok {
			mt = &model.MonthTotal{Month: month, Total: decimal.Zero}
			byMonth[month] = mt
		}
		mt.Total = mt.Total.Add(e.Amount)
		mt.Count++
	}

	for _, ct := range byCategory {
		summary.ByCategory = append(summary.ByCategory, *ct)
	}
	sort.Slice(summary.ByCategory, func(i, j int) bool {
		a, b := summary.ByCategory[i], summary.ByCategory[j]
		if !a.Total.Equal(b.Total) {
			return a.Total.GreaterThan(b.Total)
		}
		return a.CategoryName < b.CategoryName
	})

	for _, mt := range byMonth {
		summary.ByMonth = append(summary.ByMonth, *mt)
	}
	sort.Slice(summary.ByMonth, func(i, j int) bool {
		return summary.ByMonth[i].Month < summary.ByMonth[j].Month
	})

	return summary
}

func findExpenseCategory(ctx context.Context, repos repository.Repositories, id uint) (*model.Category, error) {
	category, err := repos.Categories.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidCategory
		}
		return nil, fmt.Errorf("find category: %w", err)
	}
	return category, nil
}

// parseExpenseInput checks that the amount is positive with at most two
// decimal places and that the date is a calendar date.
func parseExpenseInput(input ExpenseInput) (decimal.Decimal, string, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(input.Amount))
	if err != nil || !amount.IsPositive() || !amount.Equal(amount.Round(2)) {
		return decimal.Zero, "", apperrors.ErrInvalidAmount
	}

	date, err := parseDate(input.Date)
	if err != nil {
		return decimal.Zero, "", err
	}
	return amount, date, nil
}

func parseDate(value string) (string, error) {
	t, err := time.Parse(model.DateLayout, strings.TrimSpace(value))
	if err != nil {
		return "", apperrors.ErrInvalidDate
	}
	return t.Format(model.DateLayout), nil
}

func validateRange(from, to string) error {
	if from != "" {
		if _, err := parseDate(from); err != nil {
			return err
		}
	}
	if to != "" {
		if _, err := parseDate(to); err != nil {
			return err
		}
	}
	if from != "" && to != "" && from > to {
		return apperrors.ErrInvalidDate
	}
	return nil
}
