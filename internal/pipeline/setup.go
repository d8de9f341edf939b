package pipeline

import (
	"context"
	"fmt"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/generation"
	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/metrics"
	"github.com/hyperjump/kotae/internal/storage"
	"go.uber.org/zap"
)

// FromConfig creates the store, embedder, and generator described by cfg and
// returns an engine that owns them. m may be nil.
func FromConfig(ctx context.Context, cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) (*Engine, error) {
	store, err := storage.New(ctx, &cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to open index store: %w", err)
	}
	emb, err := embedding.New(ctx, &cfg.Embedding, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	gen, err := generation.New(ctx, &cfg.Generation, logger)
	if err != nil {
		_ = emb.Close()
		_ = store.Close()
		return nil, err
	}
	source := indexer.NewSource(
		extract.NewExtractor(),
		indexer.NewChunker(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap),
		cfg.Ingest.Extensions,
	)
	return New(store, emb, gen,
		WithLogger(logger),
		WithMetrics(m),
		WithThreshold(cfg.Answer.ThresholdOrDefault()),
		WithConcurrency(cfg.Embedding.Concurrency),
		WithTimeout(cfg.Timeouts.Request),
		WithSource(source),
		WithDiskPaths(storage.LocalPaths(&cfg.Storage)...),
	), nil
}
