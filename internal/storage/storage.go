package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/securedocs/backend/config"
)

var ErrBlobNotFound = errors.New("blob not found")

// BlobStore holds the local copy of uploaded file contents.
type BlobStore interface {
	// Save writes content under key and returns the number of bytes written.
	Save(ctx context.Context, key string, content io.Reader) (int64, error)

	// Exists checks whether a blob is present and readable.
	Exists(ctx context.Context, key string) (bool, error)

	// Open returns a reader for the blob. Returns ErrBlobNotFound if missing.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// RealPath returns a human-readable location of the blob.
	RealPath(key string) string

	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, key string) error
}

// New builds the BlobStore selected by cfg.Driver.
func New(ctx context.Context, cfg config.StorageConfig) (BlobStore, error) {
	switch cfg.Driver {
	case "local":
		return NewLocalStore(cfg.LocalRoot), nil
	case "s3":
		return NewS3Store(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}
