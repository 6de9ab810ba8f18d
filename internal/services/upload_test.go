package services

import (
	"context"
	"errors"
	"testing"

	"github.com/securedocs/backend/internal/models"
	"github.com/securedocs/backend/internal/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadStoresFileRemotely(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	file := h.createFile("report.pdf", 50*mb)

	preflight, err := h.validator.Validate(ctx, file, h.user, "")
	require.NoError(t, err)
	require.True(t, preflight.OK)
	assert.Empty(t, preflight.Warnings)

	var pendingDuringUpload []models.UploadAttempt
	h.pinata.onUpload = func() {
		pendingDuringUpload = h.attempts(file)
	}

	result, err := h.coordinator.Upload(ctx, UploadRequest{FileID: file.ID, UserID: h.user.ID})
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Nil(t, result.Error)
	assert.Equal(t, "pinata", result.Provider)
	assert.Equal(t, "pinata-hash-1", result.ContentHash)
	assert.NotEmpty(t, result.AttemptUUID)

	require.Len(t, pendingDuringUpload, 1)
	assert.Equal(t, models.AttemptPending, pendingDuringUpload[0].Status)

	attempts := h.attempts(file)
	require.Len(t, attempts, 1)
	assert.Equal(t, models.AttemptSuccess, attempts[0].Status)
	assert.Equal(t, result.AttemptID, attempts[0].ID)
	require.NotNil(t, attempts[0].ContentHash)
	assert.Equal(t, "pinata-hash-1", *attempts[0].ContentHash)

	stored := h.reload(file)
	assert.True(t, stored.IsBlockchainStored)
	assert.Equal(t, "pinata", *stored.BlockchainProvider)
	assert.Equal(t, "pinata-hash-1", *stored.ContentHash)
	assert.True(t, stored.RemoteStateConsistent())

	assert.Equal(t, "report.pdf", h.pinata.meta.Filename)
	assert.Equal(t, file.ID, h.pinata.meta.FileID)
	assert.Equal(t, h.user.ID, h.pinata.meta.UserID)
	assert.Equal(t, result.AttemptUUID, h.pinata.meta.AttemptID)
	assert.Equal(t, "content of report.pdf", h.pinata.body)
}

func TestUploadProviderFailureKeepsFileUnchanged(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
	}{
		{
			name:    "connection error",
			err:     errors.New("dial tcp 10.0.0.1:443: connect: connection refused"),
			message: "dial tcp 10.0.0.1:443: connect: connection refused",
		},
		{
			name:    "provider error",
			err:     &providers.Error{Provider: "pinata", StatusCode: 401, Message: "Invalid API key", Raw: []byte(`{"error":"Invalid API key"}`)},
			message: "Invalid API key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()
			file := h.createFile("report.pdf", mb)

			first, err := h.coordinator.Upload(ctx, UploadRequest{FileID: file.ID, UserID: h.user.ID})
			require.NoError(t, err)
			require.True(t, first.Success)
			before := h.reload(file)

			h.pinata.uploadErr = tt.err
			result, err := h.coordinator.Upload(ctx, UploadRequest{FileID: file.ID, UserID: h.user.ID, Provider: "pinata"})
			require.NoError(t, err)

			assert.False(t, result.Success)
			require.NotNil(t, result.Error)
			assert.Equal(t, RemoteProviderError, result.Error.Kind)
			assert.True(t, result.Error.Kind.Retryable())
			assert.Contains(t, result.Error.Message, tt.message)

			failed, err := h.ledger.GetByID(ctx, result.AttemptID)
			require.NoError(t, err)
			assert.Equal(t, models.AttemptFailed, failed.Status)
			require.NotNil(t, failed.ErrorMessage)
			assert.Equal(t, tt.message, *failed.ErrorMessage)
			assert.NotNil(t, failed.CompletedAt)

			after := h.reload(file)
			assert.Equal(t, before.IsBlockchainStored, after.IsBlockchainStored)
			assert.Equal(t, *before.ContentHash, *after.ContentHash)
			assert.Equal(t, *before.BlockchainProvider, *after.BlockchainProvider)
			assert.Equal(t, *before.RemoteURL, *after.RemoteURL)
		})
	}
}

func TestUploadRejectsWithoutAttempt(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	big := h.createFile("big.pdf", 150*mb)
	result, err := h.coordinator.Upload(ctx, UploadRequest{FileID: big.ID, UserID: h.user.ID})
	require.NoError(t, err)
	assert.Equal(t, SizeExceeded, result.Error.Kind)

	result, err = h.coordinator.Upload(ctx, UploadRequest{FileID: 9999, UserID: h.user.ID})
	require.NoError(t, err)
	assert.Equal(t, FileInaccessible, result.Error.Kind)

	h.pinata.configured = false
	result, err = h.coordinator.Upload(ctx, UploadRequest{FileID: big.ID, UserID: h.user.ID})
	require.NoError(t, err)
	assert.Equal(t, ProviderMisconfigured, result.Error.Kind)

	basic := h.createUser("0x3333333333333333333333333333333333333333", false)
	result, err = h.coordinator.Upload(ctx, UploadRequest{FileID: big.ID, UserID: basic.ID})
	require.NoError(t, err)
	assert.Equal(t, FileInaccessible, result.Error.Kind, "files of other users are not visible")

	assert.Equal(t, int64(0), h.countAttempts())
	assert.Equal(t, 0, h.pinata.uploads)
}

func TestUploadEntitlementDenied(t *testing.T) {
	h := newHarness(t)
	h.user = h.createUser("0x4444444444444444444444444444444444444444", false)
	file := h.createFile("report.pdf", mb)

	result, err := h.coordinator.Upload(context.Background(), UploadRequest{FileID: file.ID, UserID: h.user.ID})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, EntitlementDenied, result.Error.Kind)
	assert.Equal(t, int64(0), h.countAttempts())
}

func TestUploadMissingBlobRecordsFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	file := h.createFile("report.pdf", mb)
	require.NoError(t, h.blobs.Delete(ctx, file.StoragePath))

	result, err := h.coordinator.Upload(ctx, UploadRequest{FileID: file.ID, UserID: h.user.ID})
	require.NoError(t, err)
	assert.Equal(t, FileInaccessible, result.Error.Kind)

	attempts := h.attempts(file)
	require.Len(t, attempts, 1)
	assert.Equal(t, models.AttemptFailed, attempts[0].Status)
	assert.Equal(t, 0, h.pinata.uploads)
}

func TestReuploadSupersedesPreviousSuccess(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	file := h.createFile("report.pdf", mb)

	for i := 0; i < 2; i++ {
		result, err := h.coordinator.Upload(ctx, UploadRequest{FileID: file.ID, UserID: h.user.ID})
		require.NoError(t, err)
		require.True(t, result.Success)
	}

	statuses := map[models.AttemptStatus]int{}
	for _, a := range h.attempts(file) {
		statuses[a.Status]++
	}
	assert.Equal(t, 1, statuses[models.AttemptSuccess])
	assert.Equal(t, 1, statuses[models.AttemptSuperseded])
	assert.Equal(t, "pinata-hash-2", *h.reload(file).ContentHash)
}
