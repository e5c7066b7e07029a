package db

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/config"
	"expensetracker/internal/model"
)

func TestSQLiteDSN(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{
			name: "file database gets WAL",
			path: "expenses.db",
			want: "expenses.db?_busy_timeout=5000&_foreign_keys=on&_journal_mode=WAL",
		},
		{
			name: "memory database skips WAL",
			path: "file:x?mode=memory&cache=shared",
			want: "file:x?mode=memory&cache=shared&_busy_timeout=5000&_foreign_keys=on",
		},
		{
			name: "explicit pragma wins",
			path: "expenses.db?_busy_timeout=100",
			want: "expenses.db?_busy_timeout=100&_foreign_keys=on&_journal_mode=WAL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sqliteDSN(tt.path))
		})
	}
}

func TestOpenAndMigrate(t *testing.T) {
	cfg := &config.Config{
		DBDriver:   config.DriverSQLite,
		SQLitePath: "file:open_and_migrate?mode=memory&cache=shared",
	}

	gormDB, err := Open(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, Migrate(gormDB))

	for _, m := range []interface{}{&model.User{}, &model.FirstTimeLoginToken{}, &model.Category{}, &model.Expense{}} {
		assert.True(t, gormDB.Migrator().HasTable(m))
	}

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(&config.Config{DBDriver: "oracle"}, nil)
	assert.Error(t, err)
}

func TestNewSQLite_LogsThroughLogrus(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.JSONFormatter{})

	gormDB, err := NewSQLite("file:gorm_logger?mode=memory&cache=shared", log)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := gormDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	require.NoError(t, Migrate(gormDB))
	buf.Reset()

	var user model.User
	err = gormDB.Where("LOWER(username) = LOWER(?)", "ghost-login-attempt").First(&user).Error
	require.Error(t, err)
	assert.Empty(t, buf.String(), "missed lookups are not logged")

	err = gormDB.Exec("SELECT * FROM no_such_table WHERE token = ?", "secret-token-value").Error
	require.Error(t, err)
	assert.Contains(t, buf.String(), `"component":"gorm"`)
	assert.Contains(t, buf.String(), "no_such_table")
	assert.NotContains(t, buf.String(), "secret-token-value")
}
