package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/auth"
	"expensetracker/internal/cache"
	"expensetracker/internal/logging"
	"expensetracker/internal/metrics"
	"expensetracker/internal/model"
	"expensetracker/internal/repository"
	"expensetracker/internal/testutil"
)

const (
	testSecret      = "test-secret-that-is-at-least-32-bytes-long"
	testFrontendURL = "http://tracker.local"
	strongPassword  = "Str0ng!Passw0rd"
)

type fixture struct {
	store      repository.Store
	redis      *miniredis.Miniredis
	cache      *cache.Client
	metrics    *metrics.Metrics
	jwt        *auth.JWTService
	tokens     TokenService
	auth       AuthService
	bootstrap  BootstrapService
	users      UserService
	categories CategoryService
	expenses   ExpenseService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := repository.NewStore(testutil.NewDB(t))
	mr := miniredis.RunT(t)
	client := cache.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = client.Close() })

	log := logging.Discard()
	m := metrics.New()
	jwtService, err := auth.NewJWTService(testSecret, time.Hour)
	require.NoError(t, err)

	tokens := NewTokenService(store, 15*time.Minute, testFrontendURL, log, m)
	return &fixture{
		store:      store,
		redis:      mr,
		cache:      client,
		metrics:    m,
		jwt:        jwtService,
		tokens:     tokens,
		auth:       NewAuthService(store, jwtService, tokens, client, log, m),
		bootstrap:  NewBootstrapService(store, tokens, log),
		users:      NewUserService(store, tokens, client, log),
		categories: NewCategoryService(store, client, log),
		expenses:   NewExpenseService(store, log),
	}
}

// provision creates an inactive user and returns it with its first-time token.
func (f *fixture) provision(t *testing.T, username string, role model.Role) (*model.User, string) {
	t.Helper()
	ctx := context.Background()

	created, err := f.users.CreateUser(ctx, CreateUserInput{Username: username, Role: role})
	require.NoError(t, err)

	token, err := f.store.Repos().Tokens.FindLatestByUserID(ctx, created.User.ID)
	require.NoError(t, err)
	return created.User, token.Token
}

// activate creates a user that has completed password setup.
func (f *fixture) activate(t *testing.T, username string, role model.Role) *model.User {
	t.Helper()
	_, token := f.provision(t, username, role)
	user, err := f.auth.SetPassword(context.Background(), token, strongPassword)
	require.NoError(t, err)
	return user
}
