package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/securedocs/backend/config"
	"github.com/securedocs/backend/internal/models"
	"github.com/securedocs/backend/internal/providers"
	"github.com/securedocs/backend/internal/storage"
	"github.com/securedocs/backend/pkg/logger"
	"github.com/securedocs/backend/pkg/units"
)

// QuotaCounter counts uploads that delivered content to a provider.
type QuotaCounter interface {
	CountCompletedSince(ctx context.Context, userID uint, since time.Time) (int64, error)
}

// PreflightResult is the outcome of Validate. Errors holds at most one entry:
// validation stops at the first hard failure. Warnings never block an upload.
type PreflightResult struct {
	OK                   bool           `json:"ok"`
	Provider             string         `json:"provider"`
	Errors               []*UploadError `json:"errors"`
	Warnings             []string       `json:"warnings"`
	FileSize             int64          `json:"fileSize"`
	FileSizeFormatted    string         `json:"fileSizeFormatted"`
	MaxFileSize          int64          `json:"maxFileSize"`
	MaxFileSizeFormatted string         `json:"maxFileSizeFormatted"`
	QuotaUsed            int64          `json:"quotaUsed"`
	QuotaLimit           int            `json:"quotaLimit"`
	QuotaResetDate       time.Time      `json:"quotaResetDate"`
}

func (r *PreflightResult) fail(err *UploadError) *PreflightResult {
	r.OK = false
	r.Errors = append(r.Errors, err)
	return r
}

// FirstError returns the blocking error, or nil when the file passed.
func (r *PreflightResult) FirstError() *UploadError {
	if len(r.Errors) == 0 {
		return nil
	}
	return r.Errors[0]
}

type PreflightValidator struct {
	cfg         config.BlockchainConfig
	registry    *providers.Registry
	blobs       storage.BlobStore
	quota       QuotaCounter
	entitlement *Entitlement
	log         logger.Logger
	now         func() time.Time
}

func NewPreflightValidator(
	cfg config.BlockchainConfig,
	registry *providers.Registry,
	blobs storage.BlobStore,
	quota QuotaCounter,
	entitlement *Entitlement,
	log logger.Logger,
) *PreflightValidator {
	return &PreflightValidator{
		cfg:         cfg,
		registry:    registry,
		blobs:       blobs,
		quota:       quota,
		entitlement: entitlement,
		log:         log,
		now:         time.Now,
	}
}

// Validate checks whether file may be uploaded to providerName by user. An empty
// providerName selects the default provider. The returned error is reserved for
// infrastructure faults; rejected files come back as a result with OK false.
func (v *PreflightValidator) Validate(ctx context.Context, file *models.File, user *models.User, providerName string) (*PreflightResult, error) {
	providerName = v.registry.Resolve(providerName)
	resetDate := nextMonthStart(v.now())

	result := &PreflightResult{
		OK:                true,
		Provider:          providerName,
		Errors:            []*UploadError{},
		Warnings:          []string{},
		FileSize:          file.Size,
		FileSizeFormatted: units.FormatBytes(file.Size),
		QuotaLimit:        v.cfg.MaxMonthlyUploads,
		QuotaResetDate:    resetDate,
	}
	if d, ok := v.registry.Descriptor(providerName); ok {
		result.MaxFileSize = d.MaxFileSize
		result.MaxFileSizeFormatted = d.MaxFileSizeFormatted
	}

	if !v.entitlement.Allowed(ctx, user) {
		return result.fail(newUploadError(EntitlementDenied, "remote storage requires an active premium subscription")), nil
	}

	client, uerr := resolveClient(v.registry, providerName)
	if uerr != nil {
		return result.fail(uerr), nil
	}

	if uerr, err := checkAccessible(ctx, v.blobs, file); err != nil {
		return nil, err
	} else if uerr != nil {
		return result.fail(uerr), nil
	}

	if uerr := checkSize(file, client); uerr != nil {
		return result.fail(uerr), nil
	}

	if ext := file.Extension(); !v.extensionAllowed(ext) {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("file type %q is not in the list of recommended types for remote storage", ext))
	}

	if file.IsBlockchainStored && file.BlockchainProvider != nil && file.ContentHash != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("file is already stored on %s with hash %s; uploading again will replace the recorded copy",
				*file.BlockchainProvider, *file.ContentHash))
	}

	if v.cfg.MaxMonthlyUploads > 0 {
		used, err := v.quota.CountCompletedSince(ctx, user.ID, monthStart(v.now()))
		if err != nil {
			v.log.WithError(err).WithFields(map[string]interface{}{
				"user_id":  user.ID,
				"file_id":  file.ID,
				"provider": providerName,
			}).Error("Failed to count monthly uploads")
			return nil, fmt.Errorf("failed to count monthly uploads: %w", err)
		}
		result.QuotaUsed = used

		if used >= int64(v.cfg.MaxMonthlyUploads) {
			uerr := newUploadError(QuotaExceeded,
				"monthly remote upload limit of %d reached; the limit resets on %s",
				v.cfg.MaxMonthlyUploads, resetDate.Format("2006-01-02"))
			uerr.ResetDate = &resetDate
			return result.fail(uerr), nil
		}
	}

	return result, nil
}

func (v *PreflightValidator) extensionAllowed(ext string) bool {
	if len(v.cfg.AllowedExtensions) == 0 {
		return true
	}
	for _, allowed := range v.cfg.AllowedExtensions {
		if strings.EqualFold(allowed, ext) {
			return true
		}
	}
	return false
}

// resolveClient maps registry lookups to ProviderUnavailable and missing
// credentials to ProviderMisconfigured.
func resolveClient(registry *providers.Registry, name string) (providers.Client, *UploadError) {
	client, err := registry.Get(name)
	if errors.Is(err, providers.ErrProviderDisabled) {
		return nil, newUploadError(ProviderUnavailable, "storage provider %q is disabled", name)
	}
	if err != nil {
		return nil, newUploadError(ProviderUnavailable, "storage provider %q is not available", name)
	}
	if !client.IsConfigured() {
		return nil, newUploadError(ProviderMisconfigured, "storage provider %q is missing credentials", name)
	}
	return client, nil
}

// checkAccessible verifies the file can be read without reading it.
func checkAccessible(ctx context.Context, blobs storage.BlobStore, file *models.File) (*UploadError, error) {
	if file.IsFolder {
		return newUploadError(FileInaccessible, "folders cannot be stored remotely"), nil
	}
	if !file.IsActive() {
		return newUploadError(FileInaccessible, "file %q is %s", file.Name, file.State), nil
	}
	if file.StoragePath == "" {
		return newUploadError(FileInaccessible, "file %q has no stored content", file.Name), nil
	}

	exists, err := blobs.Exists(ctx, file.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("failed to check blob %s: %w", blobs.RealPath(file.StoragePath), err)
	}
	if !exists {
		return newUploadError(FileInaccessible, "stored content for file %q is missing", file.Name), nil
	}
	return nil, nil
}

func checkSize(file *models.File, client providers.Client) *UploadError {
	if limit := client.MaxFileSize(); limit > 0 && file.Size > limit {
		return newUploadError(SizeExceeded, "file size %s exceeds the %s limit of %s",
			units.FormatBytes(file.Size), client.Name(), units.FormatBytes(limit))
	}
	return nil
}

func monthStart(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func nextMonthStart(now time.Time) time.Time {
	return monthStart(now).AddDate(0, 1, 0)
}

// QuotaWindow returns the start of the current quota month and the date the
// quota resets, both in UTC.
func QuotaWindow(now time.Time) (start, reset time.Time) {
	return monthStart(now), nextMonthStart(now)
}
