package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"expensetracker/internal/model"
)

// TokenRepository persists first-time login tokens.
type TokenRepository interface {
	Create(ctx context.Context, token *model.FirstTimeLoginToken) error
	FindByToken(ctx context.Context, token string) (*model.FirstTimeLoginToken, error)
	FindLatestByUserID(ctx context.Context, userID uint) (*model.FirstTimeLoginToken, error)
	MarkUsed(ctx context.Context, token string) (bool, error)
	DeleteByUserID(ctx context.Context, userID uint) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type tokenRepository struct {
	db *gorm.DB
}

// NewTokenRepository creates a new token repository.
func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &tokenRepository{db: db}
}

// Create inserts a new token.
func (r *tokenRepository) Create(ctx context.Context, token *model.FirstTimeLoginToken) error {
	return r.db.WithContext(ctx).Omit("User").Create(token).Error
}

// FindByToken loads a token and its owner.
func (r *tokenRepository) FindByToken(ctx context.Context, token string) (*model.FirstTimeLoginToken, error) {
	var t model.FirstTimeLoginToken
	if err := r.db.WithContext(ctx).Preload("User").Where("token = ?", token).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// FindLatestByUserID returns the most recently issued token of a user.
func (r *tokenRepository) FindLatestByUserID(ctx context.Context, userID uint) (*model.FirstTimeLoginToken, error) {
	var t model.FirstTimeLoginToken
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id DESC").First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// MarkUsed flips used to true only if it is still false. It reports whether
// this call won; a false result with nil error means the token was already consumed.
func (r *tokenRepository) MarkUsed(ctx context.Context, token string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.FirstTimeLoginToken{}).
		Where("token = ? AND used = ?", token, false).
		Update("used", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// DeleteByUserID removes every token of a user.
func (r *tokenRepository) DeleteByUserID(ctx context.Context, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.FirstTimeLoginToken{})
	return res.RowsAffected, res.Error
}

// DeleteExpired removes tokens whose expiry is before now.
func (r *tokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&model.FirstTimeLoginToken{})
	return res.RowsAffected, res.Error
}
