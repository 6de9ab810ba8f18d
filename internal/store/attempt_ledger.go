package store

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/securedocs/backend/internal/models"
	"github.com/securedocs/backend/internal/providers"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AttemptLedger is the append-only history of upload attempts. Rows only change
// status; they are deleted when their file is purged.
type AttemptLedger struct {
	db      *gorm.DB
	retries int
	now     func() time.Time

	// beforePromote runs inside CompleteSuccess after earlier successes are demoted.
	beforePromote func(tx *gorm.DB) error
}

type ProviderStats struct {
	Total      int64 `json:"total"`
	Successful int64 `json:"successful"`
	Failed     int64 `json:"failed"`
	Pending    int64 `json:"pending"`
}

// AttemptStats summarises a user's attempts. Superseded attempts count as successful.
type AttemptStats struct {
	Total       int64                    `json:"total"`
	Successful  int64                    `json:"successful"`
	Failed      int64                    `json:"failed"`
	Pending     int64                    `json:"pending"`
	SuccessRate float64                  `json:"successRate"`
	PerProvider map[string]ProviderStats `json:"perProvider"`
}

func NewAttemptLedger(db *gorm.DB, retries int) *AttemptLedger {
	return &AttemptLedger{db: db, retries: retries, now: time.Now}
}

// CreatePending inserts and commits a pending attempt.
func (l *AttemptLedger) CreatePending(ctx context.Context, fileID, userID uint, provider string) (*models.UploadAttempt, error) {
	attempt := &models.UploadAttempt{
		UUID:      uuid.NewString(),
		FileID:    fileID,
		UserID:    userID,
		Provider:  provider,
		Status:    models.AttemptPending,
		StartedAt: l.now().UTC(),
	}

	if err := l.db.WithContext(ctx).Omit(clause.Associations).Create(attempt).Error; err != nil {
		return nil, err
	}
	return attempt, nil
}

// CompleteSuccess marks the attempt successful and records the remote copy on the
// file in the same transaction. Any earlier success row for the same file and
// provider is demoted to superseded.
func (l *AttemptLedger) CompleteSuccess(ctx context.Context, attempt *models.UploadAttempt, receipt *providers.Receipt) error {
	completedAt := l.now().UTC()
	storedAt := completedAt
	if receipt.Timestamp != nil {
		storedAt = receipt.Timestamp.UTC()
	}

	err := WithTxRetry(l.db.WithContext(ctx), l.retries, func(tx *gorm.DB) error {
		err := tx.Model(&models.UploadAttempt{}).
			Where("file_id = ? AND provider = ? AND status = ? AND id <> ?",
				attempt.FileID, attempt.Provider, models.AttemptSuccess, attempt.ID).
			Update("status", models.AttemptSuperseded).Error
		if err != nil {
			return err
		}
		if l.beforePromote != nil {
			if err := l.beforePromote(tx); err != nil {
				return err
			}
		}

		result := tx.Model(&models.UploadAttempt{}).
			Where("id = ?", attempt.ID).
			Updates(map[string]interface{}{
				"status":           models.AttemptSuccess,
				"content_hash":     receipt.ContentHash,
				"remote_url":       receipt.RemoteURL,
				"remote_size":      receipt.Size,
				"remote_timestamp": receipt.Timestamp,
				"raw_response":     receipt.Raw,
				"error_message":    nil,
				"completed_at":     completedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}

		return SetRemote(tx, attempt.FileID, attempt.Provider, receipt.ContentHash, receipt.RemoteURL, storedAt)
	})
	if err != nil {
		return err
	}

	attempt.Status = models.AttemptSuccess
	attempt.ContentHash = &receipt.ContentHash
	attempt.RemoteURL = &receipt.RemoteURL
	attempt.RemoteSize = receipt.Size
	attempt.RemoteTimestamp = receipt.Timestamp
	attempt.RawResponse = receipt.Raw
	attempt.ErrorMessage = nil
	attempt.CompletedAt = &completedAt
	return nil
}

// MarkFailed records a failure on a pending attempt. The file is not touched.
func (l *AttemptLedger) MarkFailed(ctx context.Context, attempt *models.UploadAttempt, message string, raw []byte) error {
	completedAt := l.now().UTC()

	result := l.db.WithContext(ctx).Model(&models.UploadAttempt{}).
		Where("id = ? AND status = ?", attempt.ID, models.AttemptPending).
		Updates(map[string]interface{}{
			"status":        models.AttemptFailed,
			"error_message": message,
			"raw_response":  raw,
			"completed_at":  completedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	attempt.Status = models.AttemptFailed
	attempt.ErrorMessage = &message
	attempt.RawResponse = raw
	attempt.CompletedAt = &completedAt
	return nil
}

func (l *AttemptLedger) GetByID(ctx context.Context, id uint) (*models.UploadAttempt, error) {
	var attempt models.UploadAttempt
	if err := l.db.WithContext(ctx).First(&attempt, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &attempt, nil
}

// ListForFile returns a file's attempts, newest first.
func (l *AttemptLedger) ListForFile(ctx context.Context, fileID uint) ([]models.UploadAttempt, error) {
	var attempts []models.UploadAttempt
	err := l.db.WithContext(ctx).
		Where("file_id = ?", fileID).
		Order("started_at DESC, id DESC").
		Find(&attempts).Error
	return attempts, err
}

// CountCompletedSince counts attempts that delivered content to a provider on or after since.
func (l *AttemptLedger) CountCompletedSince(ctx context.Context, userID uint, since time.Time) (int64, error) {
	var count int64
	err := l.db.WithContext(ctx).Model(&models.UploadAttempt{}).
		Where("user_id = ? AND status IN ? AND completed_at >= ?",
			userID, []models.AttemptStatus{models.AttemptSuccess, models.AttemptSuperseded}, since.UTC()).
		Count(&count).Error
	return count, err
}

func (l *AttemptLedger) StatsForUser(ctx context.Context, userID uint) (*AttemptStats, error) {
	var rows []struct {
		Provider string
		Status   models.AttemptStatus
		Count    int64
	}

	err := l.db.WithContext(ctx).Model(&models.UploadAttempt{}).
		Select("provider, status, COUNT(*) AS count").
		Where("user_id = ?", userID).
		Group("provider, status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := &AttemptStats{PerProvider: map[string]ProviderStats{}}
	for _, row := range rows {
		ps := stats.PerProvider[row.Provider]
		ps.Total += row.Count
		stats.Total += row.Count

		switch row.Status {
		case models.AttemptSuccess, models.AttemptSuperseded:
			ps.Successful += row.Count
			stats.Successful += row.Count
		case models.AttemptFailed:
			ps.Failed += row.Count
			stats.Failed += row.Count
		case models.AttemptPending:
			ps.Pending += row.Count
			stats.Pending += row.Count
		}
		stats.PerProvider[row.Provider] = ps
	}

	if stats.Total > 0 {
		rate := float64(stats.Successful) / float64(stats.Total) * 100
		stats.SuccessRate = math.Round(rate*10) / 10
	}

	return stats, nil
}

// FailStalePending marks attempts that have been pending since before olderThan as failed.
func (l *AttemptLedger) FailStalePending(ctx context.Context, olderThan time.Time, message string) (int64, error) {
	result := l.db.WithContext(ctx).Model(&models.UploadAttempt{}).
		Where("status = ? AND started_at < ?", models.AttemptPending, olderThan.UTC()).
		Updates(map[string]interface{}{
			"status":        models.AttemptFailed,
			"error_message": message,
			"completed_at":  l.now().UTC(),
		})
	return result.RowsAffected, result.Error
}

// DeleteAttemptsForFile removes a file's attempts as part of a purge transaction.
func DeleteAttemptsForFile(tx *gorm.DB, fileID uint) error {
	return tx.Where("file_id = ?", fileID).Delete(&models.UploadAttempt{}).Error
}
