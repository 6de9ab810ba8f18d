package database

import (
	"testing"

	"github.com/securedocs/backend/config"
	"github.com/securedocs/backend/internal/models"
	"github.com/securedocs/backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormlogger "gorm.io/gorm/logger"
)

func TestGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, gormLogLevel(logger.LoggingConfig{DisableGORMLogging: true, ProductionMode: true}))
	assert.Equal(t, gormlogger.Error, gormLogLevel(logger.LoggingConfig{ProductionMode: true}))
	assert.Equal(t, gormlogger.Info, gormLogLevel(logger.LoggingConfig{}))
}

func TestNewInMemorySQLiteMigrates(t *testing.T) {
	db, err := NewInMemorySQLite()
	require.NoError(t, err)

	assert.True(t, db.Migrator().HasTable(&models.File{}))
	assert.True(t, db.Migrator().HasTable(&models.UploadAttempt{}))
	assert.True(t, db.Migrator().HasIndex(&models.UploadAttempt{}, "idx_upload_attempts_one_success"))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(configWithDriver("oracle"), logger.LoggingConfig{})
	assert.Error(t, err)
}

func configWithDriver(driver string) config.DatabaseConfig {
	return config.DatabaseConfig{Driver: driver}
}
