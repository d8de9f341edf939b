package storage

import (
	"context"
	"fmt"

	"github.com/hyperjump/kotae/internal/config"
)

// New creates the configured index store.
func New(ctx context.Context, cfg *config.StorageConfig) (IndexStore, error) {
	switch cfg.Backend {
	case "file", "":
		return NewFileStore(cfg.ContextDir), nil
	case "sqlite":
		return NewSQLiteStore(cfg.DatabasePath)
	case "minio":
		return NewMinIOStore(ctx, cfg.MinIO)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s (supported: file, sqlite, minio)", cfg.Backend)
	}
}

// LocalPaths returns the on-disk paths used by the configured backend, for
// disk usage reporting. Remote backends have none.
func LocalPaths(cfg *config.StorageConfig) []string {
	switch cfg.Backend {
	case "file", "":
		return []string{cfg.ContextDir}
	case "sqlite":
		return []string{cfg.DatabasePath, cfg.DatabasePath + "-wal", cfg.DatabasePath + "-shm"}
	default:
		return nil
	}
}
