package config

import (
	_ "embed"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

// RBACModel is the casbin model used by the RBAC middleware.
//
//go:embed restful_rbac_model.conf
var RBACModel string

var loadEnv sync.Once

// Config returns the value of key from the environment, loading .env on first use.
func Config(key string) string {
	loadEnv.Do(func() {
		if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
			slog.Warn("failed to load .env file", "error", err)
		}
	})

	return os.Getenv(key)
}

func ConfigOr(key string, fallback string) string {
	if value := Config(key); value != "" {
		return value
	}
	return fallback
}

func ConfigInt(key string, fallback int) int {
	value, err := strconv.Atoi(Config(key))
	if err != nil {
		return fallback
	}
	return value
}

func ConfigBool(key string, fallback bool) bool {
	value, err := strconv.ParseBool(Config(key))
	if err != nil {
		return fallback
	}
	return value
}

// LogLevel parses LOG_LEVEL, defaulting to INFO.
func LogLevel() slog.Level {
	return ParseLogLevel(Config("LOG_LEVEL"))
}

func ParseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
