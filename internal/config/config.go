package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// DriverSQLite selects the embedded SQLite datastore.
	DriverSQLite = "sqlite"
	// DriverMySQL selects a MySQL datastore.
	DriverMySQL = "mysql"

	minJWTSecretLength = 32
)

// ErrWeakJWTSecret is returned when the signing secret is shorter than 32 bytes.
var ErrWeakJWTSecret = errors.New("JWT_SECRET must be at least 32 bytes")

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort string

	DBDriver   string
	SQLitePath string
	MySQLDSN   string

	RedisAddr string
	RedisDB   int
	RedisPass string

	JWTSecret            string
	JWTExpiration        time.Duration
	FirstTimeTokenExpiry time.Duration
	FrontendURL          string
	CORSAllowedOrigins   []string
	TokenSweepSchedule   string
	LogLevel             string
	LogFormat            string
	SwaggerHost          string
}

// Load builds Config from environment with sensible defaults.
func Load() *Config {
	frontendURL := strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:3000"), "/")

	return &Config{
		ServerPort:           getEnv("SERVER_PORT", "8080"),
		DBDriver:             strings.ToLower(getEnv("DB_DRIVER", DriverSQLite)),
		SQLitePath:           getEnv("SQLITE_PATH", "expenses.db"),
		MySQLDSN:             getEnv("MYSQL_DSN", "user:password@tcp(localhost:3306)/expenses?charset=utf8mb4&parseTime=True&loc=Local"),
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:              getEnvInt("REDIS_DB", 0),
		RedisPass:            os.Getenv("REDIS_PASSWORD"),
		JWTSecret:            getEnv("JWT_SECRET", "dev-only-secret-change-me-0123456789abcdef"),
		JWTExpiration:        time.Duration(getEnvInt("JWT_EXPIRATION_MS", 86400000)) * time.Millisecond,
		FirstTimeTokenExpiry: time.Duration(getEnvInt("FIRST_TIME_TOKEN_EXPIRY_MINUTES", 15)) * time.Minute,
		FrontendURL:          frontendURL,
		CORSAllowedOrigins:   getEnvList("CORS_ALLOWED_ORIGINS", []string{frontendURL}),
		TokenSweepSchedule:   getEnv("TOKEN_SWEEP_SCHEDULE", "@every 1h"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFormat:            getEnv("LOG_FORMAT", "text"),
		SwaggerHost:          os.Getenv("SWAGGER_HOST"),
	}
}

// Validate reports configuration that the server must not start with.
func (c *Config) Validate() error {
	if len(c.JWTSecret) < minJWTSecretLength {
		return ErrWeakJWTSecret
	}
	if c.JWTExpiration <= 0 {
		return fmt.Errorf("JWT_EXPIRATION_MS must be positive")
	}
	if c.FirstTimeTokenExpiry <= 0 {
		return fmt.Errorf("FIRST_TIME_TOKEN_EXPIRY_MINUTES must be positive")
	}
	switch c.DBDriver {
	case DriverSQLite, DriverMySQL:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

// getEnvList splits a comma separated variable, dropping empty entries.
func getEnvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
