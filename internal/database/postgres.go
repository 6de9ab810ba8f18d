package database

import (
	"fmt"

	"github.com/securedocs/backend/config"
	applogger "github.com/securedocs/backend/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to the database selected by cfg.Driver.
func Open(cfg config.DatabaseConfig, logging applogger.LoggingConfig) (*gorm.DB, error) {
	switch cfg.Driver {
	case "postgres":
		return NewPostgresConnection(cfg, logging)
	case "sqlite":
		return NewSQLiteConnection(cfg.SQLitePath, logging)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// NewPostgresConnection creates a new connection to a PostgreSQL database
func NewPostgresConnection(cfg config.DatabaseConfig, logging applogger.LoggingConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormLogLevel(logging)),
	})
	if err != nil {
		return nil, err
	}

	return db, nil
}

func gormLogLevel(logging applogger.LoggingConfig) gormlogger.LogLevel {
	switch {
	case logging.DisableGORMLogging:
		return gormlogger.Silent
	case logging.ProductionMode:
		return gormlogger.Error
	default:
		return gormlogger.Info
	}
}
