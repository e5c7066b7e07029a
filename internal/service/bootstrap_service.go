package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"expensetracker/internal/model"
	"expensetracker/internal/repository"
)

// BootstrapService guarantees the default admin account exists.
type BootstrapService interface {
	EnsureDefaultAdmin(ctx context.Context) (bool, error)
}

type bootstrapService struct {
	store  repository.Store
	tokens TokenService
	log    logrus.FieldLogger
}

// NewBootstrapService creates a new bootstrap service.
func NewBootstrapService(store repository.Store, tokens TokenService, log logrus.FieldLogger) BootstrapService {
	return &bootstrapService{store: store, tokens: tokens, log: log}
}

// EnsureDefaultAdmin creates the inactive default admin and its first-time
// token unless a default admin already exists. It reports whether it created one.
func (s *bootstrapService) EnsureDefaultAdmin(ctx context.Context) (bool, error) {
	var token *model.FirstTimeLoginToken
	err := s.store.WithTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		count, err := repos.Users.CountDefaultAdmins(ctx)
		if err != nil {
			return fmt.Errorf("count default admins: %w", err)
		}
		if count > 0 {
			return nil
		}

		taken, err := repos.Users.ExistsByUsername(ctx, model.DefaultAdminUsername, 0)
		if err != nil {
			return fmt.Errorf("check username: %w", err)
		}
		if taken {
			return fmt.Errorf("username %q is held by a regular account", model.DefaultAdminUsername)
		}

		admin := &model.User{
			Username:       model.DefaultAdminUsername,
			Role:           model.RoleAdmin,
			IsDefaultAdmin: true,
		}
		if err := repos.Users.Create(ctx, admin); err != nil {
			return fmt.Errorf("create default admin: %w", err)
		}

		token, err = s.tokens.WithRepos(repos).GenerateTokenForUser(ctx, admin)
		return err
	})
	if err != nil {
		return false, err
	}
	if token == nil {
		s.log.Debug("default admin already present")
		return false, nil
	}

	s.log.WithFields(logrus.Fields{
		"username":   model.DefaultAdminUsername,
		"setup_url":  s.tokens.SetupURL(token.Token),
		"expires_at": token.ExpiresAt,
	}).Warn("default admin created without a password, open setup_url to finish setup")
	return true, nil
}
