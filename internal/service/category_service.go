package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"expensetracker/internal/cache"
	apperrors "expensetracker/internal/errors"
	"expensetracker/internal/model"
	"expensetracker/internal/repository"
)

const (
	categoryListCacheKey = "categories:all"
	categoryCacheTTL     = 10 * time.Minute
)

// CategoryInput is the writable part of a category.
type CategoryInput struct {
	Name        string
	Description string
	Color       string
}

// CategoryService manages expense categories.
type CategoryService interface {
	ListCategories(ctx context.Context) ([]model.Category, error)
	GetCategory(ctx context.Context, id uint) (*model.Category, error)
	CreateCategory(ctx context.Context, input CategoryInput) (*model.Category, error)
	UpdateCategory(ctx context.Context, id uint, input CategoryInput) (*model.Category, error)
	DeleteCategory(ctx context.Context, id uint) error
	EnsureDefaults(ctx context.Context) (int, error)
}

type categoryService struct {
	store repository.Store
	cache *cache.Client
	log   logrus.FieldLogger
}

// NewCategoryService creates a new category service.
func NewCategoryService(store repository.Store, cache *cache.Client, log logrus.FieldLogger) CategoryService {
	return &categoryService{store: store, cache: cache, log: log}
}

func (s *categoryService) ListCategories(ctx context.Context) ([]model.Category, error) {
	var cached []model.Category
	if s.cache.GetJSON(ctx, categoryListCacheKey, &cached) {
		return cached, nil
	}

	categories, err := s.store.Repos().Categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	s.cache.SetJSON(ctx, categoryListCacheKey, categories, categoryCacheTTL)
	return categories, nil
}

func (s *categoryService) GetCategory(ctx context.Context, id uint) (*model.Category, error) {
	category, err := s.store.Repos().Categories.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("find category: %w", err)
	}
	return category, nil
}

func (s *categoryService) CreateCategory(ctx context.Context, input CategoryInput) (*model.Category, error) {
	category := &model.Category{
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Color:       input.Color,
	}

	err := s.store.WithTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		exists, err := repos.Categories.ExistsByName(ctx, category.Name, 0)
		if err != nil {
			return fmt.Errorf("check category name: %w", err)
		}
		if exists {
			return apperrors.ErrCategoryExists
		}
		return repos.Categories.Create(ctx, category)
	})
	if err != nil {
		return nil, err
	}

	_ = s.cache.Delete(ctx, categoryListCacheKey)
	return category, nil
}

func (s *categoryService) UpdateCategory(ctx context.Context, id uint, input CategoryInput) (*model.Category, error) {
	var category *model.Category
	err := s.store.WithTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		category, err = repos.Categories.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrCategoryNotFound
			}
			return fmt.Errorf("find category: %w", err)
		}

		name := strings.TrimSpace(input.Name)
		exists, err := repos.Categories.ExistsByName(ctx, name, id)
		if err != nil {
			return fmt.Errorf("check category name: %w", err)
		}
		if exists {
			return apperrors.ErrCategoryExists
		}

		category.Name = name
		category.Description = input.Description
		category.Color = input.Color
		return repos.Categories.Update(ctx, category)
	})
	if err != nil {
		return nil, err
	}

	_ = s.cache.Delete(ctx, categoryListCacheKey)
	return category, nil
}

// DeleteCategory refuses to remove a category that expenses still point to.
func (s *categoryService) DeleteCategory(ctx context.Context, id uint) error {
	err := s.store.WithTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		inUse, err := repos.Expenses.CountByCategory(ctx, id)
		if err != nil {
			return fmt.Errorf("count expenses: %w", err)
		}
		if inUse > 0 {
			return apperrors.ErrCategoryInUse
		}
		if err := repos.Categories.Delete(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrCategoryNotFound
			}
			return fmt.Errorf("delete category: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	_ = s.cache.Delete(ctx, categoryListCacheKey)
	return nil
}

// EnsureDefaults inserts the missing built-in categories and returns how many were added.
func (s *categoryService) EnsureDefaults(ctx context.Context) (int, error) {
	added := 0
	err := s.store.WithTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		for _, def := range model.DefaultCategories {
			exists, err := repos.Categories.ExistsByName(ctx, def.Name, 0)
			if err != nil {
				return fmt.Errorf("check category %s: %w", def.Name, err)
			}
			if exists {
				continue
			}
			category := def
			if err := repos.Categories.Create(ctx, &category); err != nil {
				return fmt.Errorf("create category %s: %w", def.Name, err)
			}
			added++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if added > 0 {
		_ = s.cache.Delete(ctx, categoryListCacheKey)
		s.log.WithField("count", added).Info("default categories created")
	}
	return added, nil
}
