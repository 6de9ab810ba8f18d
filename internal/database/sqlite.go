package database

import (
	"fmt"

	"github.com/google/uuid"
	applogger "github.com/securedocs/backend/pkg/logger"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewSQLiteConnection opens an embedded database from a go-sqlite3 DSN. SQLite
// allows one writer at a time, so the pool is limited to a single connection.
func NewSQLiteConnection(dsn string, logging applogger.LoggingConfig) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormLogLevel(logging)),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}

// NewInMemorySQLite opens a private, migrated in-memory database.
func NewInMemorySQLite() (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	db, err := NewSQLiteConnection(dsn, applogger.LoggingConfig{DisableGORMLogging: true})
	if err != nil {
		return nil, err
	}

	if err := MigrateDB(db); err != nil {
		return nil, err
	}

	return db, nil
}
