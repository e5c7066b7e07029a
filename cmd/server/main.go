package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"expensetracker/internal/auth"
	"expensetracker/internal/cache"
	"expensetracker/internal/config"
	"expensetracker/internal/db"
	"expensetracker/internal/handler"
	"expensetracker/internal/logging"
	"expensetracker/internal/metrics"
	"expensetracker/internal/repository"
	"expensetracker/internal/router"
	"expensetracker/internal/service"
)

const shutdownTimeout = 10 * time.Second

// @title Expense Tracker API
// @version 1.0
// @description Personal expense tracker with first-time password setup and JWT authentication.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)

	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	gormDB, err := db.Open(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("database init")
	}
	if err := db.Migrate(gormDB); err != nil {
		log.WithError(err).Fatal("auto-migrate")
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cacheClient.Close()
	if err := cacheClient.Ping(context.Background()); err != nil {
		log.WithError(err).Warn("redis unavailable, continuing without cache")
	}

	jwtService, err := auth.NewJWTService(cfg.JWTSecret, cfg.JWTExpiration)
	if err != nil {
		log.WithError(err).Fatal("jwt init")
	}

	m := metrics.New()
	store := repository.NewStore(gormDB)

	// Initialize services
	tokenService := service.NewTokenService(store, cfg.FirstTimeTokenExpiry, cfg.FrontendURL, log, m)
	authService := service.NewAuthService(store, jwtService, tokenService, cacheClient, log, m)
	bootstrapService := service.NewBootstrapService(store, tokenService, log)
	userService := service.NewUserService(store, tokenService, cacheClient, log)
	categoryService := service.NewCategoryService(store, cacheClient, log)
	expenseService := service.NewExpenseService(store, log)

	if _, err := bootstrapService.EnsureDefaultAdmin(context.Background()); err != nil {
		log.WithError(err).Fatal("default admin bootstrap")
	}

	sweeper, err := service.NewTokenSweeper(tokenService, cfg.TokenSweepSchedule, log)
	if err != nil {
		log.WithError(err).Fatal("token sweeper")
	}
	sweeper.Start()

	e := echo.New()
	e.HideBanner = true
	router.Register(e, cfg, jwtService, m, log, router.Handlers{
		Auth:       handler.NewAuthHandler(authService),
		Users:      handler.NewUserHandler(userService),
		Categories: handler.NewCategoryHandler(categoryService),
		Expenses:   handler.NewExpenseHandler(expenseService),
	})

	go func() {
		addr := ":" + cfg.ServerPort
		log.WithFields(logrus.Fields{
			"addr":    addr,
			"driver":  cfg.DBDriver,
			"swagger": "http://localhost" + addr + "/swagger/index.html",
		}).Info("server starting")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server start")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	sweeper.Stop(shutdownCtx)
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown")
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
