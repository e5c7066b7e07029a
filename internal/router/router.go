package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	echoSwagger "github.com/swaggo/echo-swagger"

	"expensetracker/docs"
	"expensetracker/internal/auth"
	"expensetracker/internal/config"
	"expensetracker/internal/errors"
	"expensetracker/internal/handler"
	"expensetracker/internal/logging"
	"expensetracker/internal/metrics"
)

// Handlers groups the HTTP handlers mounted under /api.
type Handlers struct {
	Auth       *handler.AuthHandler
	Users      *handler.UserHandler
	Categories *handler.CategoryHandler
	Expenses   *handler.ExpenseHandler
}

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	jwtService *auth.JWTService,
	m *metrics.Metrics,
	log logrus.FieldLogger,
	h Handlers,
) {
	e.Use(middleware.RequestID())
	e.Use(logging.RequestLogger(log))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSAllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	e.Validator = &CustomValidator{validator: validator.New()}

	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = cfg.SwaggerHost
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	bearer := BearerAuth(jwtService)
	api := e.Group("/api")

	// Public auth routes
	authGroup := api.Group("/auth")
	authGroup.POST("/login", h.Auth.Login)
	authGroup.POST("/logout", h.Auth.Logout)
	authGroup.GET("/setup-required", h.Auth.SetupRequired)
	authGroup.POST("/setup-admin", h.Auth.SetupAdmin)
	authGroup.POST("/set-password/:token", h.Auth.SetPassword)
	authGroup.GET("/validate-token/:token", h.Auth.ValidateToken)
	authGroup.GET("/me", h.Auth.Me, bearer)

	users := api.Group("/users", bearer)
	users.POST("", h.Users.CreateUser)
	users.GET("", h.Users.ListUsers)
	users.GET("/:id", h.Users.GetUser)
	users.PUT("/:id", h.Users.UpdateUser)
	users.DELETE("/:id", h.Users.DeleteUser)
	users.POST("/:id/regenerate-token", h.Users.RegenerateToken)
	users.POST("/:id/change-password", h.Users.ChangePassword)

	categories := api.Group("/categories", bearer)
	categories.GET("", h.Categories.ListCategories)
	categories.POST("", h.Categories.CreateCategory)
	categories.GET("/:id", h.Categories.GetCategory)
	categories.PUT("/:id", h.Categories.UpdateCategory)
	categories.DELETE("/:id", h.Categories.DeleteCategory)

	expenses := api.Group("/expenses", bearer)
	expenses.GET("", h.Expenses.ListExpenses)
	expenses.POST("", h.Expenses.CreateExpense)
	expenses.GET("/summary", h.Expenses.Summary)
	expenses.GET("/:id", h.Expenses.GetExpense)
	expenses.PUT("/:id", h.Expenses.UpdateExpense)
	expenses.DELETE("/:id", h.Expenses.DeleteExpense)
}

// BearerAuth reads "Authorization: Bearer <token>", validates it with the
// session service and stores the claims under handler.ContextKeyClaims.
// Missing, malformed and expired tokens all produce the same 401.
func BearerAuth(jwtService *auth.JWTService) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  handler.ContextKeyClaims,
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			claims, err := jwtService.ValidateToken(token)
			if err != nil {
				return nil, err
			}
			return claims, nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			httpErr := errors.MapErrorToHTTP(errors.ErrUnauthorized)
			return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
		},
	})
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
