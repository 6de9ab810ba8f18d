package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/securedocs/backend/internal/models"
	"github.com/securedocs/backend/internal/storage"
	"github.com/securedocs/backend/internal/store"
	"github.com/securedocs/backend/pkg/logger"
)

// FileManager stores the local copy of user files and moves them through the
// active, trashed and purged states.
type FileManager struct {
	files *store.FileStore
	blobs storage.BlobStore
	log   logger.Logger
	now   func() time.Time
}

func NewFileManager(files *store.FileStore, blobs storage.BlobStore, log logger.Logger) *FileManager {
	return &FileManager{files: files, blobs: blobs, log: log, now: time.Now}
}

// Store saves content and creates the file row. The blob is removed again if
// the row cannot be created.
func (m *FileManager) Store(ctx context.Context, userID uint, name, mimeType string, content io.Reader) (*models.File, error) {
	key := path.Join("users", fmt.Sprint(userID), uuid.NewString())

	size, err := m.blobs.Save(ctx, key, content)
	if err != nil {
		return nil, fmt.Errorf("failed to save file content: %w", err)
	}

	file := &models.File{
		UserID:      userID,
		Name:        name,
		StoragePath: key,
		Size:        size,
		MimeType:    mimeType,
		State:       models.FileStateActive,
	}
	if err := m.files.Create(ctx, file); err != nil {
		if delErr := m.blobs.Delete(ctx, key); delErr != nil {
			m.log.WithError(delErr).WithField("key", key).Warning("Failed to delete orphaned blob")
		}
		return nil, fmt.Errorf("failed to create file record: %w", err)
	}

	m.log.WithFields(map[string]interface{}{
		"file_id": file.ID,
		"user_id": userID,
		"size":    size,
	}).Info("File stored")

	return file, nil
}

func (m *FileManager) Get(ctx context.Context, userID, fileID uint) (*models.File, error) {
	return m.files.GetForUser(ctx, userID, fileID)
}

func (m *FileManager) List(ctx context.Context, userID uint, state models.FileState) ([]models.File, error) {
	return m.files.ListForUser(ctx, userID, state)
}

// Open returns the local content of an active file.
func (m *FileManager) Open(ctx context.Context, file *models.File) (io.ReadCloser, error) {
	if !file.IsActive() {
		return nil, models.ErrInvalidTransition
	}
	return m.blobs.Open(ctx, file.StoragePath)
}

func (m *FileManager) Trash(ctx context.Context, userID, fileID uint) (*models.File, error) {
	file, err := m.files.GetForUser(ctx, userID, fileID)
	if err != nil {
		return nil, err
	}
	if err := m.files.Trash(ctx, file, m.now()); err != nil {
		return nil, err
	}
	return file, nil
}

func (m *FileManager) Restore(ctx context.Context, userID, fileID uint) (*models.File, error) {
	file, err := m.files.GetForUser(ctx, userID, fileID)
	if err != nil {
		return nil, err
	}
	if err := m.files.Restore(ctx, file); err != nil {
		return nil, err
	}
	return file, nil
}
