// Package app builds the service graph shared by the HTTP server and the
// command line tools.
package app

import (
	"context"
	"fmt"

	"github.com/securedocs/backend/config"
	"github.com/securedocs/backend/internal/database"
	"github.com/securedocs/backend/internal/providers"
	"github.com/securedocs/backend/internal/services"
	"github.com/securedocs/backend/internal/storage"
	"github.com/securedocs/backend/internal/store"
	"github.com/securedocs/backend/pkg/logger"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	Log    logger.Logger
	DB     *gorm.DB

	Blobs    storage.BlobStore
	Registry *providers.Registry
	Ethereum *services.EthereumService

	Users  *store.UserStore
	Files  *store.FileStore
	Ledger *store.AttemptLedger

	FileManager *services.FileManager
	Chunks      *services.ChunkSessions
	Entitlement *services.Entitlement
	Validator   *services.PreflightValidator
	Uploads     *services.UploadCoordinator
	Removal     *services.RemovalCoordinator
	Sweeper     *services.Sweeper
	Purger      *services.Purger
	Maintenance *services.Maintenance
}

// New opens the database, blob store, provider registry and Ethereum client
// described by cfg and wires the services on top of them.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	log.WithField("driver", cfg.Database.Driver).Info("Attempting to connect to database...")
	db, err := database.Open(cfg.Database, cfg.LoggerConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("Successfully connected to database.")

	blobs, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize blob storage: %w", err)
	}

	registry, err := providers.NewRegistry(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage providers: %w", err)
	}

	eth, err := services.NewEthereumService(cfg.Ethereum, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ethereum client: %w", err)
	}

	return Assemble(cfg, log, db, blobs, registry, eth), nil
}

// Assemble wires the services over already opened dependencies.
func Assemble(
	cfg *config.Config,
	log logger.Logger,
	db *gorm.DB,
	blobs storage.BlobStore,
	registry *providers.Registry,
	eth *services.EthereumService,
) *App {
	retries := cfg.Blockchain.TransactionRetries

	a := &App{
		Config:   cfg,
		Log:      log,
		DB:       db,
		Blobs:    blobs,
		Registry: registry,
		Ethereum: eth,
		Users:    store.NewUserStore(db),
		Files:    store.NewFileStore(db, retries),
		Ledger:   store.NewAttemptLedger(db, retries),
	}

	a.FileManager = services.NewFileManager(a.Files, blobs, log)
	a.Chunks = services.NewChunkSessions(cfg.Storage.ChunkDir, a.FileManager, cfg.Storage.ChunkSessionTTL, cfg.Storage.MaxUploadSize, log)
	a.Entitlement = services.NewEntitlement(cfg.Blockchain.RequirePremium, eth, log)
	a.Validator = services.NewPreflightValidator(cfg.Blockchain, registry, blobs, a.Ledger, a.Entitlement, log)
	a.Uploads = services.NewUploadCoordinator(registry, a.Files, a.Users, a.Ledger, blobs, a.Entitlement, log)
	a.Removal = services.NewRemovalCoordinator(registry, a.Files, log)
	a.Sweeper = services.NewSweeper(a.Ledger, cfg.Blockchain.PendingAttemptTTL, log)
	a.Purger = services.NewPurger(a.Files, blobs, a.Removal, cfg.Maintenance.TrashRetention, log)
	a.Maintenance = services.NewMaintenance(a.Sweeper, a.Purger, cfg.Maintenance.SweepInterval, log)
	a.Maintenance.CleanChunkSessions(a.Chunks)

	return a
}

func (a *App) Migrate() error {
	a.Log.Info("Attempting to run database migrations...")
	if err := database.MigrateDB(a.DB); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	a.Log.Info("Database migrations completed successfully.")
	return nil
}

func (a *App) Close() error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
