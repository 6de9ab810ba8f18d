package database

import (
	"github.com/securedocs/backend/internal/models"
	"gorm.io/gorm"
)

// MigrateDB creates or updates the tables, including the partial unique index
// that allows one successful upload attempt per file and provider.
func MigrateDB(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.File{},
		&models.UploadAttempt{},
	)
}
