package model

import "time"

// Category groups expenses.
type Category struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"uniqueIndex;size:100;not null"`
	Description string    `json:"description,omitempty" gorm:"size:255"`
	Color       string    `json:"color,omitempty" gorm:"size:7"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// DefaultCategories are inserted by the seed command when missing.
var DefaultCategories = []Category{
	{Name: "Food", Color: "#f97316"},
	{Name: "Transport", Color: "#3b82f6"},
	{Name: "Housing", Color: "#8b5cf6"},
	{Name: "Utilities", Color: "#14b8a6"},
	{Name: "Entertainment", Color: "#ec4899"},
	{Name: "Health", Color: "#22c55e"},
	{Name: "Other", Color: "#6b7280"},
}
