package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"expensetracker/internal/auth"
	"expensetracker/internal/cache"
	apperrors "expensetracker/internal/errors"
	"expensetracker/internal/model"
	"expensetracker/internal/repository"
)

const userCacheTTL = 5 * time.Minute

// CreateUserInput describes a user created by an administrator.
type CreateUserInput struct {
	Username string
	Email    *string
	Role     model.Role
}

// UpdateUserInput holds the fields to change. Nil fields are left untouched.
type UpdateUserInput struct {
	Username *string
	Email    *string
	Role     *model.Role
}

// ProvisionedUser is a user together with the token that activates it.
type ProvisionedUser struct {
	User           *model.User
	SetupURL       string
	TokenExpiresAt time.Time
}

// UserService exposes user administration.
type UserService interface {
	CreateUser(ctx context.Context, input CreateUserInput) (*ProvisionedUser, error)
	GetUser(ctx context.Context, id uint) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateUser(ctx context.Context, id uint, input UpdateUserInput, byAdmin bool) (*model.User, error)
	DeleteUser(ctx context.Context, id uint) error
	RegenerateToken(ctx context.Context, id uint) (*ProvisionedUser, error)
	ChangePassword(ctx context.Context, id uint, current, next string) error
}

type userService struct {
	store  repository.Store
	tokens TokenService
	cache  *cache.Client
	log    logrus.FieldLogger
}

// NewUserService builds a UserService with repository and cache.
func NewUserService(store repository.Store, tokens TokenService, cache *cache.Client, log logrus.FieldLogger) UserService {
	return &userService{store: store, tokens: tokens, cache: cache, log: log}
}

// CreateUser stores an inactive user and issues its first-time token.
func (s *userService) CreateUser(ctx context.Context, input CreateUserInput) (*ProvisionedUser, error) {
	username := strings.TrimSpace(input.Username)
	role := input.Role
	if role == "" {
		role = model.RoleUser
	}

	var (
		user  *model.User
		token *model.FirstTimeLoginToken
	)
	err := s.store.WithTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		taken, err := repos.Users.ExistsByUsername(ctx, username, 0)
		if err != nil {
			return fmt.Errorf("check username: %w", err)
		}
		if taken {
			return apperrors.ErrUsernameTaken
		}

		user = &model.User{Username: username, Email: input.Email, Role: role}
		if err := repos.Users.Create(ctx, user); err != nil {
			return fmt.Errorf("create user: %w", err)
		}

		token, err = s.tokens.WithRepos(repos).GenerateTokenForUser(ctx, user)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("user created")
	return &ProvisionedUser{
		User:           user,
		SetupURL:       s.tokens.SetupURL(token.Token),
		TokenExpiresAt: token.ExpiresAt,
	}, nil
}

func (s *userService) GetUser(ctx context.Context, id uint) (*model.User, error) {
	var cached model.User
	if s.cache.GetJSON(ctx, userCacheKey(id), &cached) {
		return &cached, nil
	}

	user, err := s.store.Repos().Users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	s.cache.SetJSON(ctx, userCacheKey(id), user, userCacheTTL)
	return user, nil
}

func (s *userService) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.store.Repos().Users.List(ctx)
}

// UpdateUser changes username, email and, for administrators, the role.
// The default admin keeps its username and role.
func (s *userService) UpdateUser(ctx context.Context, id uint, input UpdateUserInput, byAdmin bool) (*model.User, error) {
	if input.Role != nil && !byAdmin {
		return nil, apperrors.ErrForbidden
	}

	var user *model.User
	err := s.store.WithTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		user, err = repos.Users.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrUserNotFound
			}
			return fmt.Errorf("find user: %w", err)
		}

		if input.Username != nil {
			username := strings.TrimSpace(*input.Username)
			if username != user.Username {
				if user.IsDefaultAdmin {
					return apperrors.ErrDefaultAdminProtected
				}
				taken, err := repos.Users.ExistsByUsername(ctx, username, user.ID)
				if err != nil {
					return fmt.Errorf("check username: %w", err)
				}
				if taken {
					return apperrors.ErrUsernameTaken
				}
				user.Username = username
			}
		}

		if input.Role != nil && *input.Role != user.Role {
			if user.IsDefaultAdmin {
				return apperrors.ErrDefaultAdminProtected
			}
			user.Role = *input.Role
		}

		if input.Email != nil {
			user.Email = input.Email
		}

		return repos.Users.Update(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	_ = s.cache.Delete(ctx, userCacheKey(id))
	return user, nil
}

// DeleteUser removes a user together with its tokens and expenses.
func (s *userService) DeleteUser(ctx context.Context, id uint) error {
	err := s.store.WithTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		user, err := repos.Users.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrUserNotFound
			}
			return fmt.Errorf("find user: %w", err)
		}
		if user.IsDefaultAdmin {
			return apperrors.ErrDefaultAdminProtected
		}

		if _, err := repos.Tokens.DeleteByUserID(ctx, id); err != nil {
			return fmt.Errorf("delete tokens: %w", err)
		}
		if _, err := repos.Expenses.DeleteByUserID(ctx, id); err != nil {
			return fmt.Errorf("delete expenses: %w", err)
		}
		return repos.Users.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	_ = s.cache.Delete(ctx, userCacheKey(id))
	s.log.WithField("user_id", id).Info("user deleted")
	return nil
}

// RegenerateToken replaces every outstanding token of the user with a new one.
func (s *userService) RegenerateToken(ctx context.Context, id uint) (*ProvisionedUser, error) {
	token, err := s.tokens.RegenerateToken(ctx, id)
	if err != nil {
		return nil, err
	}
	user := token.User
	return &ProvisionedUser{
		User:           &user,
		SetupURL:       s.tokens.SetupURL(token.Token),
		TokenExpiresAt: token.ExpiresAt,
	}, nil
}

// ChangePassword replaces the password of an active user after checking the current one.
func (s *userService) ChangePassword(ctx context.Context, id uint, current, next string) error {
	user, err := s.store.Repos().Users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrUserNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}
	if user.PasswordHash == nil || !auth.MatchPassword(current, *user.PasswordHash) {
		return apperrors.ErrWrongPassword
	}

	hash, err := preparePassword(next)
	if err != nil {
		return err
	}
	if err := s.store.Repos().Users.SetPassword(ctx, id, hash); err != nil {
		return fmt.Errorf("set password: %w", err)
	}

	_ = s.cache.Delete(ctx, userCacheKey(id))
	s.log.WithField("user_id", id).Info("password changed")
	return nil
}
