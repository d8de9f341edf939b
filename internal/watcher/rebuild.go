package watcher

import (
	"context"

	"go.uber.org/zap"
)

// BuildFunc rebuilds the index under key from the document at path.
type BuildFunc func(ctx context.Context, key, path string) error

// Rebuilder returns an onChange callback that rebuilds key from the changed
// file. Rebuilds are serialized; failures are logged and the previous index
// stays in place.
func Rebuilder(ctx context.Context, key string, build BuildFunc, logger *zap.Logger) func(path string) {
	sem := make(chan struct{}, 1)
	return func(path string) {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return
		}
		defer func() { <-sem }()
		if err := build(ctx, key, path); err != nil {
			if logger != nil {
				logger.Warn("rebuild failed", zap.String("key", key), zap.String("path", path), zap.Error(err))
			}
			return
		}
		if logger != nil {
			logger.Info("index rebuilt", zap.String("key", key), zap.String("path", path))
		}
	}
}
