package database

import (
	"fmt"
	"log/slog"

	"office-chat/config"
	"office-chat/model"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		config.Config("POSTGRES_HOST"),
		config.ConfigOr("POSTGRES_PORT", "5432"),
		config.Config("POSTGRES_USER"),
		config.Config("POSTGRES_PASSWORD"),
		config.Config("POSTGRES_DB"),
	)
}

// Connect opens the database selected by DB_DRIVER.
func Connect() (*gorm.DB, error) {
	switch driver := config.ConfigOr("DB_DRIVER", "postgres"); driver {
	case "postgres":
		return OpenPostgres(PostgresDSN())
	case "sqlite":
		return OpenSQLite(config.ConfigOr("SQLITE_PATH", "office-chat.db"))
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", driver)
	}
}

func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect postgres: %w", err)
	}

	slog.Info("connection opened to Postgres")
	return db, nil
}

// OpenSQLite opens a SQLite database on a single connection.
// Use ":memory:" for a throwaway database.
func OpenSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	slog.Info("connection opened to SQLite", "path", path)
	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.User{},
		&model.Conversation{},
		&model.Membership{},
		&model.Message{},
		&model.Attachment{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}

	slog.Info("database migrated")
	return nil
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	}
}
