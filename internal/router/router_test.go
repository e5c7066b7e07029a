package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/auth"
	"expensetracker/internal/config"
	"expensetracker/internal/errors"
	"expensetracker/internal/handler"
	"expensetracker/internal/logging"
	"expensetracker/internal/metrics"
	"expensetracker/internal/repository"
	"expensetracker/internal/service"
	"expensetracker/internal/testutil"
)

const (
	testSecret     = "router-test-secret-of-at-least-32-bytes"
	strongPassword = "Str0ng!Passw0rd"
)

type testServer struct {
	t    *testing.T
	echo *echo.Echo
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := repository.NewStore(testutil.NewDB(t))
	log := logging.Discard()
	m := metrics.New()
	jwtService, err := auth.NewJWTService(testSecret, time.Hour)
	require.NoError(t, err)

	tokens := service.NewTokenService(store, 15*time.Minute, "http://tracker.local", log, m)
	_, err = service.NewBootstrapService(store, tokens, log).EnsureDefaultAdmin(context.Background())
	require.NoError(t, err)

	e := echo.New()
	Register(e, &config.Config{CORSAllowedOrigins: []string{"*"}}, jwtService, m, log, Handlers{
		Auth:       handler.NewAuthHandler(service.NewAuthService(store, jwtService, tokens, nil, log, m)),
		Users:      handler.NewUserHandler(service.NewUserService(store, tokens, nil, log)),
		Categories: handler.NewCategoryHandler(service.NewCategoryService(store, nil, log)),
		Expenses:   handler.NewExpenseHandler(service.NewExpenseService(store, log)),
	})
	return &testServer{t: t, echo: e}
}

func (s *testServer) do(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	s.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// setupAdmin finishes the admin bootstrap and returns an admin session token.
func (s *testServer) setupAdmin() string {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/auth/setup-admin", handler.PasswordRequest{Password: strongPassword}, "")
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	return s.login("admin", strongPassword)
}

func (s *testServer) login(username, password string) string {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/auth/login", handler.LoginRequest{Username: username, Password: password}, "")
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[handler.LoginResponse](s.t, rec).Token
}

// createUser provisions a user as admin and returns its id and first-time token.
func (s *testServer) createUser(adminToken, username string) (uint, string) {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/users", handler.CreateUserRequest{Username: username}, adminToken)
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())

	created := decode[handler.ProvisionedUserResponse](s.t, rec)
	return created.User.ID, created.SetupURL[strings.LastIndex(created.SetupURL, "/")+1:]
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "expensetracker_first_time_tokens_total")
}

func TestAdminSetupFlow(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/auth/setup-required", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[handler.SetupRequiredResponse](t, rec).SetupRequired)

	rec = s.do(http.MethodPost, "/api/auth/login", handler.LoginRequest{Username: "admin", Password: strongPassword}, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPost, "/api/auth/setup-admin", handler.PasswordRequest{Password: "weak"}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	weak := decode[errors.ErrorResponse](t, rec)
	assert.Equal(t, "WEAK_PASSWORD", weak.Code)
	assert.NotEmpty(t, weak.Details)

	rec = s.do(http.MethodPost, "/api/auth/setup-admin", handler.PasswordRequest{
		Password:        strongPassword,
		ConfirmPassword: "different",
	}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	adminToken := s.setupAdmin()
	assert.NotEmpty(t, adminToken)

	rec = s.do(http.MethodGet, "/api/auth/setup-required", nil, "")
	assert.False(t, decode[handler.SetupRequiredResponse](t, rec).SetupRequired)

	rec = s.do(http.MethodPost, "/api/auth/setup-admin", handler.PasswordRequest{Password: strongPassword}, "")
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "SETUP_ALREADY_COMPLETE", decode[errors.ErrorResponse](t, rec).Code)
}

func TestFirstTimePasswordFlow(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.setupAdmin()
	_, token := s.createUser(adminToken, "alice")

	rec := s.do(http.MethodPost, "/api/auth/login", handler.LoginRequest{Username: "alice", Password: strongPassword}, "")
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "User not activated", decode[errors.ErrorResponse](t, rec).Error)

	rec = s.do(http.MethodGet, "/api/auth/validate-token/"+token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	valid := decode[handler.TokenValidationResponse](t, rec)
	assert.True(t, valid.Valid)
	assert.Equal(t, "alice", valid.Username)
	require.NotNil(t, valid.ExpiresAt)
	assert.True(t, valid.ExpiresAt.After(time.Now()))

	rec = s.do(http.MethodPost, "/api/auth/set-password/"+token, handler.PasswordRequest{
		Password:        strongPassword,
		ConfirmPassword: strongPassword,
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	activated := decode[handler.MessageResponse](t, rec)
	require.NotNil(t, activated.User)
	assert.True(t, activated.User.IsActive)
	assert.True(t, activated.User.PasswordSet)

	rec = s.do(http.MethodGet, "/api/auth/validate-token/"+token, nil, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	used := decode[handler.TokenValidationResponse](t, rec)
	assert.False(t, used.Valid)
	assert.Equal(t, "Invalid or expired token", used.Error)

	rec = s.do(http.MethodPost, "/api/auth/set-password/"+token, handler.PasswordRequest{Password: strongPassword}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_TOKEN", decode[errors.ErrorResponse](t, rec).Code)

	// Usernames match case-insensitively at login.
	session := s.login("Alice", strongPassword)

	rec = s.do(http.MethodGet, "/api/auth/me", nil, session)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[map[string]any](t, rec)
	assert.Equal(t, "alice", me["username"])
	assert.Equal(t, true, me["passwordSet"])
	assert.NotContains(t, me, "passwordHash")
	assert.NotContains(t, rec.Body.String(), "$2a$")

	rec = s.do(http.MethodPost, "/api/auth/login", handler.LoginRequest{Username: "alice", Password: "Wr0ng!Password"}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid credentials", decode[errors.ErrorResponse](t, rec).Error)

	rec = s.do(http.MethodPost, "/api/auth/login", handler.LoginRequest{Username: "nobody", Password: strongPassword}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid credentials", decode[errors.ErrorResponse](t, rec).Error)
}

func TestUnknownTokenIsRejected(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/auth/validate-token/does-not-exist", nil, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, decode[handler.TokenValidationResponse](t, rec).Valid)

	rec = s.do(http.MethodPost, "/api/auth/set-password/does-not-exist", handler.PasswordRequest{Password: strongPassword}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBearerAuthentication(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.setupAdmin()

	tests := []struct {
		name  string
		token string
	}{
		{name: "missing token", token: ""},
		{name: "garbage token", token: "not-a-jwt"},
		{name: "tampered token", token: adminToken + "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodGet, "/api/auth/me", nil, tt.token)
			require.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "UNAUTHORIZED", decode[errors.ErrorResponse](t, rec).Code)
		})
	}

	rec := s.do(http.MethodGet, "/api/users", nil, adminToken)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogoutAlwaysSucceeds(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.setupAdmin()

	for _, token := range []string{"", "garbage", adminToken} {
		rec := s.do(http.MethodPost, "/api/auth/logout", nil, token)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestUserAdministration(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.setupAdmin()

	aliceID, aliceToken := s.createUser(adminToken, "alice")
	bobID, bobToken := s.createUser(adminToken, "bob")
	for _, token := range []string{aliceToken, bobToken} {
		rec := s.do(http.MethodPost, "/api/auth/set-password/"+token, handler.PasswordRequest{Password: strongPassword}, "")
		require.Equal(t, http.StatusOK, rec.Code)
	}
	alice := s.login("alice", strongPassword)

	rec := s.do(http.MethodPost, "/api/users", handler.CreateUserRequest{Username: "ALICE"}, adminToken)
	assert.Equal(t, http.StatusConflict, rec.Code)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		want   int
	}{
		{name: "list as user", method: http.MethodGet, path: "/api/users", want: http.StatusForbidden},
		{name: "create as user", method: http.MethodPost, path: "/api/users", body: handler.CreateUserRequest{Username: "carol"}, want: http.StatusForbidden},
		{name: "read self", method: http.MethodGet, path: fmt.Sprintf("/api/users/%d", aliceID), want: http.StatusOK},
		{name: "read other", method: http.MethodGet, path: fmt.Sprintf("/api/users/%d", bobID), want: http.StatusForbidden},
		{name: "delete other", method: http.MethodDelete, path: fmt.Sprintf("/api/users/%d", bobID), want: http.StatusForbidden},
		{name: "bad id", method: http.MethodGet, path: "/api/users/abc", want: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(tt.method, tt.path, tt.body, alice)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}

	rec = s.do(http.MethodPost, fmt.Sprintf("/api/users/%d/regenerate-token", bobID), nil, adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decode[handler.ProvisionedUserResponse](t, rec).SetupURL, "/setup-password/")

	rec = s.do(http.MethodDelete, fmt.Sprintf("/api/users/%d", aliceID), nil, adminToken)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// The session outlives the account, but it no longer resolves to a user.
	rec = s.do(http.MethodGet, "/api/auth/me", nil, alice)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestExpenseOwnership(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.setupAdmin()

	rec := s.do(http.MethodPost, "/api/categories", handler.CategoryRequest{Name: "Food", Color: "#ff8800"}, adminToken)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	categoryID := decode[struct {
		ID uint `json:"id"`
	}](t, rec).ID

	_, aliceToken := s.createUser(adminToken, "alice")
	_, bobToken := s.createUser(adminToken, "bob")
	for _, token := range []string{aliceToken, bobToken} {
		rec := s.do(http.MethodPost, "/api/auth/set-password/"+token, handler.PasswordRequest{Password: strongPassword}, "")
		require.Equal(t, http.StatusOK, rec.Code)
	}
	alice := s.login("alice", strongPassword)
	bob := s.login("bob", strongPassword)

	rec = s.do(http.MethodPost, "/api/categories", handler.CategoryRequest{Name: "Travel"}, alice)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPost, "/api/expenses", map[string]interface{}{
		"categoryId": categoryID,
		"amount":     "12.50",
		"date":       "2024-03-01",
	}, alice)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	expenseID := decode[struct {
		ID uint `json:"id"`
	}](t, rec).ID
	expensePath := fmt.Sprintf("/api/expenses/%d", expenseID)

	rec = s.do(http.MethodGet, expensePath, nil, bob)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, expensePath, nil, adminToken)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/api/expenses?userId=1", nil, bob)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodGet, "/api/expenses/summary", nil, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"categoryName":"Food"`)

	rec = s.do(http.MethodDelete, fmt.Sprintf("/api/categories/%d", categoryID), nil, adminToken)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodDelete, expensePath, nil, alice)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
