package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/securedocs/backend/internal/models"
	"github.com/securedocs/backend/internal/providers"
	"github.com/securedocs/backend/internal/storage"
	"github.com/securedocs/backend/internal/store"
	"github.com/securedocs/backend/pkg/logger"
)

// UploadLedger persists upload attempts. CompleteSuccess must update the file's
// remote columns in the same transaction as the attempt.
type UploadLedger interface {
	QuotaCounter
	CreatePending(ctx context.Context, fileID, userID uint, provider string) (*models.UploadAttempt, error)
	CompleteSuccess(ctx context.Context, attempt *models.UploadAttempt, receipt *providers.Receipt) error
	MarkFailed(ctx context.Context, attempt *models.UploadAttempt, message string, raw []byte) error
}

type UploadRequest struct {
	FileID   uint
	UserID   uint
	Provider string
}

// UploadResult reports an upload. Expected failures set Error; the returned
// error of Upload is reserved for infrastructure faults.
type UploadResult struct {
	Success     bool         `json:"success"`
	Provider    string       `json:"provider"`
	ContentHash string       `json:"contentHash,omitempty"`
	RemoteURL   string       `json:"remoteUrl,omitempty"`
	AttemptID   uint         `json:"attemptId,omitempty"`
	AttemptUUID string       `json:"attemptUuid,omitempty"`
	Error       *UploadError `json:"error,omitempty"`
}

type UploadCoordinator struct {
	registry    *providers.Registry
	files       *store.FileStore
	users       *store.UserStore
	ledger      UploadLedger
	blobs       storage.BlobStore
	entitlement *Entitlement
	log         logger.Logger
}

func NewUploadCoordinator(
	registry *providers.Registry,
	files *store.FileStore,
	users *store.UserStore,
	ledger UploadLedger,
	blobs storage.BlobStore,
	entitlement *Entitlement,
	log logger.Logger,
) *UploadCoordinator {
	return &UploadCoordinator{
		registry:    registry,
		files:       files,
		users:       users,
		ledger:      ledger,
		blobs:       blobs,
		entitlement: entitlement,
		log:         log,
	}
}

// Upload copies a file to a remote provider. The pending attempt is committed
// before the provider is called and the outcome is recorded in a second
// transaction, so no transaction is open during network I/O.
func (c *UploadCoordinator) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	providerName := c.registry.Resolve(req.Provider)
	result := &UploadResult{Provider: providerName}
	log := c.log.WithFields(map[string]interface{}{
		"file_id":  req.FileID,
		"user_id":  req.UserID,
		"provider": providerName,
	})

	user, err := c.users.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %d: %w", req.UserID, err)
	}

	file, err := c.files.GetForUser(ctx, req.UserID, req.FileID)
	if errors.Is(err, store.ErrNotFound) {
		return c.reject(result, newUploadError(FileInaccessible, "file %d not found", req.FileID)), nil
	}
	if err != nil {
		log.WithError(err).Error("Failed to load file")
		return nil, fmt.Errorf("failed to load file %d: %w", req.FileID, err)
	}

	if !c.entitlement.Allowed(ctx, user) {
		return c.reject(result, newUploadError(EntitlementDenied, "remote storage requires an active premium subscription")), nil
	}

	client, uerr := resolveClient(c.registry, providerName)
	if uerr != nil {
		return c.reject(result, uerr), nil
	}

	if file.IsFolder || !file.IsActive() {
		return c.reject(result, newUploadError(FileInaccessible, "file %q cannot be stored remotely", file.Name)), nil
	}

	if uerr := checkSize(file, client); uerr != nil {
		return c.reject(result, uerr), nil
	}

	attempt, err := c.ledger.CreatePending(ctx, file.ID, user.ID, client.Name())
	if err != nil {
		log.WithError(err).Error("Failed to create upload attempt")
		return nil, fmt.Errorf("failed to create upload attempt: %w", err)
	}
	result.AttemptID = attempt.ID
	result.AttemptUUID = attempt.UUID
	log = log.WithField("attempt_id", attempt.UUID)

	// the outcome must be recorded even if the caller went away mid-upload
	recordCtx := context.WithoutCancel(ctx)

	content, err := c.blobs.Open(ctx, file.StoragePath)
	if err != nil {
		message := fmt.Sprintf("failed to read stored content: %v", err)
		if markErr := c.ledger.MarkFailed(recordCtx, attempt, message, nil); markErr != nil {
			log.WithError(markErr).Error("Failed to mark upload attempt failed")
		}
		log.WithError(err).Warning("Stored content is not readable")
		return c.reject(result, newUploadError(FileInaccessible, "stored content for file %q is not readable", file.Name)), nil
	}
	defer content.Close()

	log.Info("Uploading file to remote storage")
	started := time.Now()

	receipt, err := client.Upload(ctx, content, providers.UploadMetadata{
		Filename:  file.Name,
		MimeType:  file.MimeType,
		UserID:    user.ID,
		FileID:    file.ID,
		AttemptID: attempt.UUID,
	})
	if err != nil {
		message, raw := failureDetails(err)
		if markErr := c.ledger.MarkFailed(recordCtx, attempt, message, raw); markErr != nil {
			log.WithError(markErr).Error("Failed to mark upload attempt failed")
		}
		log.WithError(err).WithField("duration", time.Since(started).String()).Warning("Remote upload failed")
		return c.reject(result, newUploadError(RemoteProviderError, "upload to %s failed: %s", client.Name(), message)), nil
	}

	if err := c.ledger.CompleteSuccess(recordCtx, attempt, receipt); err != nil {
		// the content is on the provider but not recorded; the sweeper fails the attempt later
		log.WithError(err).WithField("content_hash", receipt.ContentHash).Error("Failed to record successful upload")
		return nil, fmt.Errorf("failed to record upload attempt %s: %w", attempt.UUID, err)
	}

	log.WithFields(map[string]interface{}{
		"content_hash": receipt.ContentHash,
		"duration":     time.Since(started).String(),
	}).Info("File stored remotely")

	result.Success = true
	result.ContentHash = receipt.ContentHash
	result.RemoteURL = receipt.RemoteURL
	return result, nil
}

func (c *UploadCoordinator) reject(result *UploadResult, uerr *UploadError) *UploadResult {
	result.Success = false
	result.Error = uerr
	return result
}

// failureDetails extracts the provider's own message and response body when available.
func failureDetails(err error) (string, []byte) {
	var perr *providers.Error
	if errors.As(err, &perr) {
		if perr.Message != "" {
			return perr.Message, perr.Raw
		}
		return perr.Error(), perr.Raw
	}
	return err.Error(), nil
}
