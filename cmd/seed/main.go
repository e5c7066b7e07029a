package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"expensetracker/internal/config"
	"expensetracker/internal/db"
	"expensetracker/internal/logging"
	"expensetracker/internal/metrics"
	"expensetracker/internal/repository"
	"expensetracker/internal/service"
)

// seed prepares a fresh database: schema, default admin and built-in categories.
// Running it again only fills in what is missing.
func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	log.Info("starting seed")

	gormDB, err := db.Open(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer func() {
		if sqlDB, err := gormDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	if err := db.Migrate(gormDB); err != nil {
		log.WithError(err).Fatal("failed to run migrations")
	}
	log.Info("database migrations completed")

	ctx := context.Background()
	store := repository.NewStore(gormDB)
	tokens := service.NewTokenService(store, cfg.FirstTimeTokenExpiry, cfg.FrontendURL, log, metrics.New())

	createdAdmin, err := service.NewBootstrapService(store, tokens, log).EnsureDefaultAdmin(ctx)
	if err != nil {
		log.WithError(err).Fatal("failed to bootstrap default admin")
	}

	// The seed has no redis; the server rebuilds its category cache on first read.
	addedCategories, err := service.NewCategoryService(store, nil, log).EnsureDefaults(ctx)
	if err != nil {
		log.WithError(err).Fatal("failed to seed categories")
	}

	log.WithFields(logrus.Fields{
		"default_admin_created": createdAdmin,
		"categories_added":      addedCategories,
	}).Info("seed completed")
}
