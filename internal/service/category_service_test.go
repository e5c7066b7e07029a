package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "expensetracker/internal/errors"
	"expensetracker/internal/model"
)

func TestCategoryService_CRUD(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	food, err := f.categories.CreateCategory(ctx, CategoryInput{Name: "Food", Color: "#ff0000"})
	require.NoError(t, err)

	_, err = f.categories.CreateCategory(ctx, CategoryInput{Name: "food"})
	assert.ErrorIs(t, err, apperrors.ErrCategoryExists)

	travel, err := f.categories.CreateCategory(ctx, CategoryInput{Name: "Travel"})
	require.NoError(t, err)

	_, err = f.categories.UpdateCategory(ctx, travel.ID, CategoryInput{Name: "FOOD"})
	assert.ErrorIs(t, err, apperrors.ErrCategoryExists)

	updated, err := f.categories.UpdateCategory(ctx, travel.ID, CategoryInput{Name: "Trips", Description: "holidays"})
	require.NoError(t, err)
	assert.Equal(t, "Trips", updated.Name)

	_, err = f.categories.UpdateCategory(ctx, 999, CategoryInput{Name: "X"})
	assert.ErrorIs(t, err, apperrors.ErrCategoryNotFound)

	got, err := f.categories.GetCategory(ctx, food.ID)
	require.NoError(t, err)
	assert.Equal(t, "#ff0000", got.Color)

	require.NoError(t, f.categories.DeleteCategory(ctx, travel.ID))
	assert.ErrorIs(t, f.categories.DeleteCategory(ctx, travel.ID), apperrors.ErrCategoryNotFound)
}

func TestCategoryService_DeleteInUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, _ := f.provision(t, "alice", model.RoleUser)

	food, err := f.categories.CreateCategory(ctx, CategoryInput{Name: "Food"})
	require.NoError(t, err)
	require.NoError(t, f.store.Repos().Expenses.Create(ctx, &model.Expense{
		UserID: user.ID, CategoryID: food.ID, Amount: decimal.RequireFromString("1.00"), Date: "2024-01-01",
	}))

	assert.ErrorIs(t, f.categories.DeleteCategory(ctx, food.ID), apperrors.ErrCategoryInUse)
}

func TestCategoryService_ListIsCachedAndInvalidated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	added, err := f.categories.EnsureDefaults(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(model.DefaultCategories), added)

	added, err = f.categories.EnsureDefaults(ctx)
	require.NoError(t, err)
	assert.Zero(t, added)

	list, err := f.categories.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, list, len(model.DefaultCategories))
	assert.True(t, f.redis.Exists(categoryListCacheKey))

	_, err = f.categories.CreateCategory(ctx, CategoryInput{Name: "Pets"})
	require.NoError(t, err)
	assert.False(t, f.redis.Exists(categoryListCacheKey))

	list, err = f.categories.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, list, len(model.DefaultCategories)+1)
}
