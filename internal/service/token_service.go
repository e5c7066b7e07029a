package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"expensetracker/internal/auth"
	apperrors "expensetracker/internal/errors"
	"expensetracker/internal/metrics"
	"expensetracker/internal/model"
	"expensetracker/internal/repository"
)

// DefaultFirstTimeTokenTTL is the validity window of a first-time login token.
const DefaultFirstTimeTokenTTL = 15 * time.Minute

// TokenInvalidReason explains why a first-time token cannot be used.
type TokenInvalidReason string

const (
	ReasonNotFound    TokenInvalidReason = "NOT_FOUND"
	ReasonAlreadyUsed TokenInvalidReason = "ALREADY_USED"
	ReasonExpired     TokenInvalidReason = "EXPIRED"
)

// TokenValidation is the result of looking up a first-time token.
type TokenValidation struct {
	Valid  bool
	Reason TokenInvalidReason
	Token  *model.FirstTimeLoginToken
	User   *model.User
}

// TokenService issues and consumes first-time login tokens.
type TokenService interface {
	GenerateTokenForUser(ctx context.Context, user *model.User) (*model.FirstTimeLoginToken, error)
	GenerateToken(ctx context.Context, userID uint) (*model.FirstTimeLoginToken, error)
	RegenerateToken(ctx context.Context, userID uint) (*model.FirstTimeLoginToken, error)
	ValidateToken(ctx context.Context, token string) *TokenValidation
	MarkTokenAsUsed(ctx context.Context, token string) error
	RevokeExpiredTokens(ctx context.Context) (int64, error)
	SetupURL(token string) string
	// WithRepos returns a copy bound to repos, typically the repositories
	// of an open transaction.
	WithRepos(repos repository.Repositories) TokenService
}

type tokenService struct {
	store       repository.Store
	repos       repository.Repositories
	ttl         time.Duration
	frontendURL string
	log         logrus.FieldLogger
	metrics     *metrics.Metrics
	now         func() time.Time
}

// NewTokenService builds a TokenService. A non-positive ttl falls back to DefaultFirstTimeTokenTTL.
func NewTokenService(store repository.Store, ttl time.Duration, frontendURL string, log logrus.FieldLogger, m *metrics.Metrics) TokenService {
	if ttl <= 0 {
		ttl = DefaultFirstTimeTokenTTL
	}
	return &tokenService{
		store:       store,
		repos:       store.Repos(),
		ttl:         ttl,
		frontendURL: frontendURL,
		log:         log,
		metrics:     m,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *tokenService) WithRepos(repos repository.Repositories) TokenService {
	bound := *s
	bound.store = nil
	bound.repos = repos
	return &bound
}

// inTx runs fn in a new transaction, or directly when the service is already bound to one.
func (s *tokenService) inTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	if s.store == nil {
		return fn(ctx, s.repos)
	}
	return s.store.WithTransaction(ctx, fn)
}

// GenerateTokenForUser stores a fresh token for user. Existing tokens are left alone.
func (s *tokenService) GenerateTokenForUser(ctx context.Context, user *model.User) (*model.FirstTimeLoginToken, error) {
	return s.issue(ctx, s.repos.Tokens, user)
}

func (s *tokenService) issue(ctx context.Context, tokens repository.TokenRepository, user *model.User) (*model.FirstTimeLoginToken, error) {
	value, err := auth.GenerateOpaqueToken(auth.FirstTimeTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	token := &model.FirstTimeLoginToken{
		Token:     value,
		UserID:    user.ID,
		ExpiresAt: s.now().Add(s.ttl),
	}
	if err := tokens.Create(ctx, token); err != nil {
		return nil, fmt.Errorf("create token: %w", err)
	}
	token.User = *user

	s.metrics.TokenEvent(metrics.TokenIssued, 1)
	s.log.WithFields(logrus.Fields{
		"user_id":    user.ID,
		"expires_at": token.ExpiresAt,
	}).Info("first-time login token issued")
	return token, nil
}

// GenerateToken looks the user up and issues a token for it.
func (s *tokenService) GenerateToken(ctx context.Context, userID uint) (*model.FirstTimeLoginToken, error) {
	user, err := s.repos.Users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return s.GenerateTokenForUser(ctx, user)
}

// RegenerateToken deletes every token of the user and issues a new one.
func (s *tokenService) RegenerateToken(ctx context.Context, userID uint) (*model.FirstTimeLoginToken, error) {
	var token *model.FirstTimeLoginToken
	err := s.inTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		user, err := repos.Users.FindByID(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrUserNotFound
			}
			return fmt.Errorf("find user: %w", err)
		}

		removed, err := repos.Tokens.DeleteByUserID(ctx, userID)
		if err != nil {
			return fmt.Errorf("delete tokens: %w", err)
		}
		s.metrics.TokenEvent(metrics.TokenRevoked, int(removed))

		token, err = s.issue(ctx, repos.Tokens, user)
		return err
	})
	if err != nil {
		return nil, err
	}
	return token, nil
}

// ValidateToken reports whether token can still be exchanged for a password.
// It never mutates state.
func (s *tokenService) ValidateToken(ctx context.Context, token string) *TokenValidation {
	if token == "" {
		return s.invalid(ReasonNotFound, nil)
	}

	found, err := s.repos.Tokens.FindByToken(ctx, token)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.WithError(err).Error("lookup first-time token")
		}
		return s.invalid(ReasonNotFound, nil)
	}

	switch {
	case found.Used:
		return s.invalid(ReasonAlreadyUsed, found)
	case found.IsExpired(s.now()):
		return s.invalid(ReasonExpired, found)
	}

	user := found.User
	return &TokenValidation{Valid: true, Token: found, User: &user}
}

func (s *tokenService) invalid(reason TokenInvalidReason, token *model.FirstTimeLoginToken) *TokenValidation {
	s.metrics.TokenEvent(metrics.TokenRejected, 1)
	fields := logrus.Fields{"reason": reason}
	if token != nil {
		fields["user_id"] = token.UserID
	}
	s.log.WithFields(fields).Debug("first-time login token rejected")
	return &TokenValidation{Reason: reason, Token: token}
}

// MarkTokenAsUsed consumes the token. Only one caller can ever win; the
// others get ErrTokenAlreadyUsed.
func (s *tokenService) MarkTokenAsUsed(ctx context.Context, token string) error {
	won, err := s.repos.Tokens.MarkUsed(ctx, token)
	if err != nil {
		return fmt.Errorf("mark token used: %w", err)
	}
	if won {
		s.metrics.TokenEvent(metrics.TokenConsumed, 1)
		return nil
	}

	if _, err := s.repos.Tokens.FindByToken(ctx, token); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrTokenNotFound
		}
		return fmt.Errorf("find token: %w", err)
	}
	return apperrors.ErrTokenAlreadyUsed
}

// RevokeExpiredTokens deletes all tokens past their expiry.
func (s *tokenService) RevokeExpiredTokens(ctx context.Context) (int64, error) {
	removed, err := s.repos.Tokens.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}
	s.metrics.TokenEvent(metrics.TokenRevoked, int(removed))
	return removed, nil
}

// SetupURL is the frontend link a user follows to set the first password.
func (s *tokenService) SetupURL(token string) string {
	return fmt.Sprintf("%s/setup-password/%s", s.frontendURL, token)
}
