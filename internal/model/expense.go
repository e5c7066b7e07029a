package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire and storage format of expense dates.
const DateLayout = "2006-01-02"

// Expense is a single spending record owned by a user.
type Expense struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	UserID      uint            `json:"userId" gorm:"not null;index"`
	CategoryID  uint            `json:"categoryId" gorm:"not null;index"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:decimal(12,2);not null"`
	Description string          `json:"description" gorm:"size:255"`
	Date        string          `json:"date" gorm:"type:varchar(10);not null;index"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`

	// Relations
	User     User     `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Category Category `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
}

// ExpenseFilter narrows expense listings. Zero values mean "no filter".
type ExpenseFilter struct {
	UserID     uint
	CategoryID uint
	From       string
	To         string
}

// CategoryTotal is the sum of expenses in one category.
type CategoryTotal struct {
	CategoryID   uint            `json:"categoryId"`
	CategoryName string          `json:"categoryName"`
	Total        decimal.Decimal `json:"total"`
	Count        int             `json:"count"`
}

// MonthTotal is the sum of expenses in one calendar month (YYYY-MM).
type MonthTotal struct {
	Month string          `json:"month"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

// ExpenseSummary aggregates a set of expenses.
type ExpenseSummary struct {
	From       string          `json:"from,omitempty"`
	To         string          `json:"to,omitempty"`
	Total      decimal.Decimal `json:"total"`
	Count      int             `json:"count"`
	ByCategory []CategoryTotal `json:"byCategory"`
	ByMonth    []MonthTotal    `json:"byMonth"`
}
