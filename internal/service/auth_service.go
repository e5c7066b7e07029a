package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"expensetracker/internal/auth"
	"expensetracker/internal/cache"
	apperrors "expensetracker/internal/errors"
	"expensetracker/internal/metrics"
	"expensetracker/internal/model"
	"expensetracker/internal/repository"
)

// LoginResult is a freshly issued session.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *model.User
}

// AuthService handles authentication operations.
type AuthService interface {
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	Logout(ctx context.Context, token string)
	CurrentUser(ctx context.Context, userID uint) (*model.User, error)
	SetupRequired(ctx context.Context) (bool, error)
	SetupAdmin(ctx context.Context, password string) (*model.User, error)
	SetPassword(ctx context.Context, token, password string) (*model.User, error)
	ValidateSetupToken(ctx context.Context, token string) *TokenValidation
}

type authService struct {
	store   repository.Store
	jwt     *auth.JWTService
	tokens  TokenService
	cache   *cache.Client
	log     logrus.FieldLogger
	metrics *metrics.Metrics
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	store repository.Store,
	jwtService *auth.JWTService,
	tokens TokenService,
	cache *cache.Client,
	log logrus.FieldLogger,
	m *metrics.Metrics,
) AuthService {
	return &authService{
		store:   store,
		jwt:     jwtService,
		tokens:  tokens,
		cache:   cache,
		log:     log,
		metrics: m,
	}
}

// Login authenticates a user and issues a session token. Unknown usernames and
// wrong passwords produce the same error.
func (s *authService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.store.Repos().Users.FindByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("find user: %w", err)
		}
		s.metrics.LoginAttempt(metrics.LoginInvalidCredentials)
		return nil, apperrors.ErrInvalidCredentials
	}

	// Checked before the password on purpose: an unprovisioned account has no
	// password to compare, and the client needs the distinct 403 to offer setup.
	if !user.IsActive {
		s.metrics.LoginAttempt(metrics.LoginNotActivated)
		return nil, apperrors.ErrUserNotActivated
	}

	if user.PasswordHash == nil || !auth.MatchPassword(password, *user.PasswordHash) {
		s.metrics.LoginAttempt(metrics.LoginInvalidCredentials)
		return nil, apperrors.ErrInvalidCredentials
	}

	session, err := s.jwt.GenerateToken(user.ID, user.Username, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}

	s.metrics.LoginAttempt(metrics.LoginSuccess)
	s.log.WithField("user_id", user.ID).Info("user logged in")
	return &LoginResult{Token: session.Token, ExpiresAt: session.ExpiresAt, User: user}, nil
}

// Logout only checks the token shape. Sessions are stateless, so the token
// stays usable until it expires.
func (s *authService) Logout(ctx context.Context, token string) {
	userID, ok := s.jwt.ExtractUserID(token)
	if !ok {
		s.log.Debug("logout with invalid session token")
		return
	}
	s.log.WithField("user_id", userID).Info("user logged out")
}

// CurrentUser resolves the session subject. A user deleted after the token
// was issued is reported as unauthorized.
func (s *authService) CurrentUser(ctx context.Context, userID uint) (*model.User, error) {
	user, err := s.store.Repos().Users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUnauthorized
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (s *authService) SetupRequired(ctx context.Context) (bool, error) {
	admin, err := s.store.Repos().Users.FindDefaultAdmin(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return true, nil
		}
		return false, fmt.Errorf("find default admin: %w", err)
	}
	return !admin.SetupComplete(), nil
}

// SetupAdmin sets the first password of the default admin. It works exactly once.
func (s *authService) SetupAdmin(ctx context.Context, password string) (*model.User, error) {
	admin, err := s.findDefaultAdmin(ctx, s.store.Repos())
	if err != nil {
		return nil, err
	}
	if admin.SetupComplete() {
		return nil, apperrors.ErrSetupAlreadyComplete
	}

	hash, err := preparePassword(password)
	if err != nil {
		return nil, err
	}

	err = s.store.WithTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		admin, err = s.findDefaultAdmin(ctx, repos)
		if err != nil {
			return err
		}
		if admin.SetupComplete() {
			return apperrors.ErrSetupAlreadyComplete
		}
		if err := repos.Users.SetPassword(ctx, admin.ID, hash); err != nil {
			return fmt.Errorf("set password: %w", err)
		}
		// The bootstrap link is useless once the admin has a password.
		if _, err := repos.Tokens.DeleteByUserID(ctx, admin.ID); err != nil {
			return fmt.Errorf("delete tokens: %w", err)
		}
		admin, err = repos.Users.FindByID(ctx, admin.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	_ = s.cache.Delete(ctx, userCacheKey(admin.ID))
	s.log.WithField("user_id", admin.ID).Info("default admin setup completed")
	return admin, nil
}

func (s *authService) findDefaultAdmin(ctx context.Context, repos repository.Repositories) (*model.User, error) {
	admin, err := repos.Users.FindDefaultAdmin(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrDefaultAdminMissing
		}
		return nil, fmt.Errorf("find default admin: %w", err)
	}
	return admin, nil
}

// SetPassword exchanges a first-time token for a password. The password write
// and the token consumption commit together; if another request consumed the
// token first, nothing is written.
func (s *authService) SetPassword(ctx context.Context, token, password string) (*model.User, error) {
	if v := s.tokens.ValidateToken(ctx, token); !v.Valid {
		return nil, apperrors.ErrInvalidToken
	}

	hash, err := preparePassword(password)
	if err != nil {
		return nil, err
	}

	var user *model.User
	err = s.store.WithTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		tokens := s.tokens.WithRepos(repos)

		v := tokens.ValidateToken(ctx, token)
		if !v.Valid {
			return apperrors.ErrInvalidToken
		}
		if err := repos.Users.SetPassword(ctx, v.User.ID, hash); err != nil {
			return fmt.Errorf("set password: %w", err)
		}
		if err := tokens.MarkTokenAsUsed(ctx, token); err != nil {
			if errors.Is(err, apperrors.ErrTokenAlreadyUsed) || errors.Is(err, apperrors.ErrTokenNotFound) {
				return apperrors.ErrInvalidToken
			}
			return err
		}

		var err error
		user, err = repos.Users.FindByID(ctx, v.User.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	_ = s.cache.Delete(ctx, userCacheKey(user.ID))
	s.log.WithField("user_id", user.ID).Info("password set with first-time token")
	return user, nil
}

// ValidateSetupToken checks a first-time token without consuming it.
func (s *authService) ValidateSetupToken(ctx context.Context, token string) *TokenValidation {
	return s.tokens.ValidateToken(ctx, token)
}
