package store

import (
	"context"
	"time"

	"github.com/securedocs/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FileStore struct {
	db      *gorm.DB
	retries int
}

func NewFileStore(db *gorm.DB, retries int) *FileStore {
	return &FileStore{db: db, retries: retries}
}

func (s *FileStore) Create(ctx context.Context, file *models.File) error {
	if file.State == "" {
		file.State = models.FileStateActive
	}
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(file).Error
}

func (s *FileStore) GetByID(ctx context.Context, id uint) (*models.File, error) {
	var file models.File
	if err := s.db.WithContext(ctx).First(&file, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &file, nil
}

// GetForUser loads a file owned by userID. Files of other users are reported as not found.
func (s *FileStore) GetForUser(ctx context.Context, userID, id uint) (*models.File, error) {
	var file models.File
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&file).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &file, nil
}

// ListForUser returns the user's files in the given state, newest first.
func (s *FileStore) ListForUser(ctx context.Context, userID uint, state models.FileState) ([]models.File, error) {
	var files []models.File
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND state = ?", userID, state).
		Order("created_at DESC, id DESC").
		Find(&files).Error
	return files, err
}

func (s *FileStore) Trash(ctx context.Context, file *models.File, now time.Time) error {
	if err := file.Trash(now.UTC()); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(file).Updates(map[string]interface{}{
		"state":      file.State,
		"trashed_at": file.TrashedAt,
	}).Error
}

func (s *FileStore) Restore(ctx context.Context, file *models.File) error {
	if err := file.Restore(); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(file).Updates(map[string]interface{}{
		"state":      file.State,
		"trashed_at": nil,
	}).Error
}

// SetRemote records the remote copy of a file. It must run inside the
// transaction that marks the upload attempt successful.
func SetRemote(tx *gorm.DB, fileID uint, provider, contentHash, remoteURL string, storedAt time.Time) error {
	result := tx.Model(&models.File{}).
		Where("id = ?", fileID).
		Updates(map[string]interface{}{
			"is_blockchain_stored": true,
			"blockchain_provider":  provider,
			"content_hash":         contentHash,
			"remote_url":           remoteURL,
			"remote_stored_at":     storedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearRemote clears every remote storage column in a single update, provided the
// file still records contentHash. It reports whether a row changed.
func (s *FileStore) ClearRemote(ctx context.Context, fileID uint, contentHash string) (bool, error) {
	result := s.db.WithContext(ctx).Model(&models.File{}).
		Where("id = ? AND content_hash = ?", fileID, contentHash).
		Updates(map[string]interface{}{
			"is_blockchain_stored": false,
			"blockchain_provider":  nil,
			"content_hash":         nil,
			"remote_url":           nil,
			"remote_stored_at":     nil,
		})
	return result.RowsAffected > 0, result.Error
}

// ListPurgeDue returns trashed files whose trash time is at or before cutoff,
// ordered by id and starting after afterID.
func (s *FileStore) ListPurgeDue(ctx context.Context, cutoff time.Time, afterID uint, limit int) ([]models.File, error) {
	var files []models.File
	err := s.db.WithContext(ctx).
		Where("state = ? AND trashed_at <= ? AND id > ?", models.FileStateTrashed, cutoff.UTC(), afterID).
		Order("id ASC").
		Limit(limit).
		Find(&files).Error
	return files, err
}

// Tombstone deletes the file's upload attempts and marks it purged in one transaction.
// The file must still be trashed.
func (s *FileStore) Tombstone(ctx context.Context, file *models.File, now time.Time) error {
	now = now.UTC()
	return WithTxRetry(s.db.WithContext(ctx), s.retries, func(tx *gorm.DB) error {
		if err := DeleteAttemptsForFile(tx, file.ID); err != nil {
			return err
		}

		result := tx.Model(&models.File{}).
			Where("id = ? AND state = ?", file.ID, models.FileStateTrashed).
			Updates(map[string]interface{}{
				"state":                models.FileStatePurged,
				"purged_at":            now,
				"storage_path":         "",
				"is_blockchain_stored": false,
				"blockchain_provider":  nil,
				"content_hash":         nil,
				"remote_url":           nil,
				"remote_stored_at":     nil,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return models.ErrInvalidTransition
		}

		file.State = models.FileStatePurged
		file.PurgedAt = &now
		return nil
	})
}
