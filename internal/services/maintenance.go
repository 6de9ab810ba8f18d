package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/securedocs/backend/internal/models"
	"github.com/securedocs/backend/internal/storage"
	"github.com/securedocs/backend/internal/store"
	"github.com/securedocs/backend/pkg/logger"
)

const purgeBatchSize = 100

// Sweeper fails attempts left pending by requests that never finished.
type Sweeper struct {
	ledger *store.AttemptLedger
	ttl    time.Duration
	log    logger.Logger
	now    func() time.Time
}

func NewSweeper(ledger *store.AttemptLedger, ttl time.Duration, log logger.Logger) *Sweeper {
	return &Sweeper{ledger: ledger, ttl: ttl, log: log, now: time.Now}
}

func (s *Sweeper) SweepPending(ctx context.Context) (int64, error) {
	message := fmt.Sprintf("upload did not complete within %s; marked failed by reconciliation sweep", s.ttl)

	n, err := s.ledger.FailStalePending(ctx, s.now().Add(-s.ttl), message)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep pending attempts: %w", err)
	}
	if n > 0 {
		s.log.WithField("count", n).Info("Marked stale upload attempts as failed")
	}
	return n, nil
}

// Purger permanently deletes files that have been in the trash past the retention window.
type Purger struct {
	files     *store.FileStore
	blobs     storage.BlobStore
	removal   *RemovalCoordinator
	retention time.Duration
	batchSize int
	log       logger.Logger
	now       func() time.Time
}

func NewPurger(files *store.FileStore, blobs storage.BlobStore, removal *RemovalCoordinator, retention time.Duration, log logger.Logger) *Purger {
	return &Purger{
		files:     files,
		blobs:     blobs,
		removal:   removal,
		retention: retention,
		batchSize: purgeBatchSize,
		log:       log,
		now:       time.Now,
	}
}

// PurgeTrashed purges due files and returns how many were purged. A file whose
// remote copy cannot be removed is skipped and retried on the next pass; files
// behind it are still reached within the same pass.
func (p *Purger) PurgeTrashed(ctx context.Context) (int, error) {
	now := p.now().UTC()
	cutoff := now.Add(-p.retention)

	purged := 0
	var lastID uint
	for {
		due, err := p.files.ListPurgeDue(ctx, cutoff, lastID, p.batchSize)
		if err != nil {
			return purged, fmt.Errorf("failed to list files due for purge: %w", err)
		}

		for i := range due {
			lastID = due[i].ID
			ok, err := p.purge(ctx, &due[i], now)
			if err != nil {
				return purged, err
			}
			if ok {
				purged++
			}
		}

		if len(due) < p.batchSize {
			return purged, nil
		}
	}
}

// purge removes one file. It reports false when the file was skipped and
// returns an error only when the context is done.
func (p *Purger) purge(ctx context.Context, file *models.File, now time.Time) (bool, error) {
	log := p.log.WithFields(map[string]interface{}{
		"file_id": file.ID,
		"user_id": file.UserID,
	})

	if file.IsBlockchainStored {
		removed, err := p.removal.Remove(ctx, file)
		if !removed {
			log.WithError(err).Warning("Skipping purge, remote copy was not removed")
			return false, ctx.Err()
		}
	}

	if file.StoragePath != "" {
		if err := p.blobs.Delete(ctx, file.StoragePath); err != nil {
			log.WithError(err).Warning("Skipping purge, failed to delete stored content")
			return false, ctx.Err()
		}
	}

	if err := p.files.Tombstone(ctx, file, now); err != nil {
		if errors.Is(err, context.Canceled) {
			return false, err
		}
		log.WithError(err).Error("Failed to mark file purged")
		return false, nil
	}

	log.Info("File purged")
	return true, nil
}

// Maintenance runs the sweeper and the purger on a fixed interval.
type Maintenance struct {
	sweeper  *Sweeper
	purger   *Purger
	chunks   *ChunkSessions
	interval time.Duration
	log      logger.Logger
}

func NewMaintenance(sweeper *Sweeper, purger *Purger, interval time.Duration, log logger.Logger) *Maintenance {
	return &Maintenance{sweeper: sweeper, purger: purger, interval: interval, log: log}
}

// CleanChunkSessions makes every pass also drop expired chunked uploads.
func (m *Maintenance) CleanChunkSessions(chunks *ChunkSessions) {
	m.chunks = chunks
}

// RunOnce runs a single sweep and purge pass.
func (m *Maintenance) RunOnce(ctx context.Context) error {
	if m.chunks != nil {
		m.chunks.CleanupExpired()
	}

	var errs []error
	if _, err := m.sweeper.SweepPending(ctx); err != nil {
		errs = append(errs, err)
	}
	if _, err := m.purger.PurgeTrashed(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Run blocks until ctx is cancelled.
func (m *Maintenance) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.log.WithField("interval", m.interval.String()).Info("Maintenance loop started")
	for {
		select {
		case <-ctx.Done():
			m.log.Info("Maintenance loop stopped")
			return
		case <-ticker.C:
			if err := m.RunOnce(ctx); err != nil {
				m.log.WithError(err).Error("Maintenance pass failed")
			}
		}
	}
}
