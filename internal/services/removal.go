package services

import (
	"context"
	"fmt"

	"github.com/securedocs/backend/internal/models"
	"github.com/securedocs/backend/internal/providers"
	"github.com/securedocs/backend/internal/store"
	"github.com/securedocs/backend/pkg/logger"
)

type RemovalCoordinator struct {
	registry *providers.Registry
	files    *store.FileStore
	log      logger.Logger
}

func NewRemovalCoordinator(registry *providers.Registry, files *store.FileStore, log logger.Logger) *RemovalCoordinator {
	return &RemovalCoordinator{registry: registry, files: files, log: log}
}

// Remove deletes the remote copy of file from the provider recorded on the file
// and then clears the file's remote columns. It returns false without error
// when the file is not stored remotely. Provider failures return false with an
// *UploadError and leave the file untouched. file itself is not modified.
func (r *RemovalCoordinator) Remove(ctx context.Context, file *models.File) (bool, error) {
	if !file.IsBlockchainStored || file.BlockchainProvider == nil || file.ContentHash == nil {
		return false, nil
	}

	providerName := *file.BlockchainProvider
	contentHash := *file.ContentHash
	log := r.log.WithFields(map[string]interface{}{
		"file_id":      file.ID,
		"user_id":      file.UserID,
		"provider":     providerName,
		"content_hash": contentHash,
	})

	// removal targets the provider holding the content even if it was disabled since
	client, ok := r.registry.Lookup(providerName)
	if !ok {
		log.Error("File references an unknown storage provider")
		return false, newUploadError(ProviderUnavailable, "storage provider %q is not available", providerName)
	}
	if !client.IsConfigured() {
		log.Error("Storage provider is missing credentials, cannot remove content")
		return false, newUploadError(ProviderMisconfigured, "storage provider %q is missing credentials", providerName)
	}

	removed, err := client.Remove(ctx, contentHash)
	if err != nil {
		message, _ := failureDetails(err)
		log.WithError(err).Warning("Remote removal failed")
		return false, newUploadError(RemoteProviderError, "removal from %s failed: %s", providerName, message)
	}
	if !removed {
		log.Warning("Provider did not confirm removal")
		return false, newUploadError(RemoteProviderError, "removal from %s was not confirmed", providerName)
	}

	cleared, err := r.files.ClearRemote(ctx, file.ID, contentHash)
	if err != nil {
		log.WithError(err).Error("Failed to clear remote storage fields")
		return false, fmt.Errorf("failed to clear remote storage fields for file %d: %w", file.ID, err)
	}
	if !cleared {
		log.Debug("Remote storage fields were already cleared")
	}

	log.Info("Remote copy removed")
	return true, nil
}
