package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLifecycle(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	f := &File{Name: "report.PDF", State: FileStateActive}

	assert.Equal(t, "pdf", f.Extension())
	assert.ErrorIs(t, f.Restore(), ErrInvalidTransition)
	assert.ErrorIs(t, f.Purge(now), ErrInvalidTransition)

	require.NoError(t, f.Trash(now))
	assert.Equal(t, FileStateTrashed, f.State)
	assert.Equal(t, now, *f.TrashedAt)
	assert.ErrorIs(t, f.Trash(now), ErrInvalidTransition)

	assert.False(t, f.PurgeDue(now.Add(time.Hour), 24*time.Hour))
	assert.True(t, f.PurgeDue(now.Add(24*time.Hour), 24*time.Hour))

	require.NoError(t, f.Restore())
	assert.Nil(t, f.TrashedAt)

	require.NoError(t, f.Trash(now))
	require.NoError(t, f.Purge(now.Add(time.Hour)))
	assert.Equal(t, FileStatePurged, f.State)
	assert.NotNil(t, f.PurgedAt)
}

func TestRemoteStateConsistent(t *testing.T) {
	provider := "pinata"
	hash := "bafy"

	assert.True(t, File{}.RemoteStateConsistent())
	assert.True(t, File{IsBlockchainStored: true, BlockchainProvider: &provider, ContentHash: &hash}.RemoteStateConsistent())
	assert.False(t, File{IsBlockchainStored: true, BlockchainProvider: &provider}.RemoteStateConsistent())
	assert.False(t, File{BlockchainProvider: &provider, ContentHash: &hash}.RemoteStateConsistent())
}

func TestHasActivePremium(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.False(t, User{}.HasActivePremium(now))
	assert.True(t, User{IsPremium: true}.HasActivePremium(now))
	assert.True(t, User{IsPremium: true, PremiumUntil: &future}.HasActivePremium(now))
	assert.False(t, User{IsPremium: true, PremiumUntil: &past}.HasActivePremium(now))
}
