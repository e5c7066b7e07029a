package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repositories groups the repositories that share one database handle.
type Repositories struct {
	Users      UserRepository
	Tokens     TokenRepository
	Categories CategoryRepository
	Expenses   ExpenseRepository
}

// Store hands out repositories and runs units of work in a transaction.
type Store interface {
	Repos() Repositories
	// WithTransaction executes fn within a database transaction. Every
	// repository passed to fn is bound to the transaction; fn must not use
	// any other handle or it will wait on the connection the transaction holds.
	WithTransaction(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

type gormStore struct {
	db *gorm.DB
}

// NewStore creates a GORM-backed store.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func newRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Users:      NewUserRepository(db),
		Tokens:     NewTokenRepository(db),
		Categories: NewCategoryRepository(db),
		Expenses:   NewExpenseRepository(db),
	}
}

func (s *gormStore) Repos() Repositories {
	return newRepositories(s.db)
}

func (s *gormStore) WithTransaction(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, newRepositories(tx))
	})
}
