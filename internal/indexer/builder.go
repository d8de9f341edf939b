package indexer

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/metrics"
	"github.com/hyperjump/kotae/internal/models"
	"go.uber.org/zap"
)

// Builder embeds passages into an index. It does not persist anything.
type Builder struct {
	embedder    embedding.Embedder
	concurrency int
	logger      *zap.Logger // optional
	metrics     *metrics.Metrics
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLogger sets a logger for build events.
func WithLogger(l *zap.Logger) BuilderOption {
	return func(b *Builder) { b.logger = l }
}

// WithMetrics records per-call embed durations.
func WithMetrics(m *metrics.Metrics) BuilderOption {
	return func(b *Builder) { b.metrics = m }
}

// WithConcurrency bounds in-flight embedding calls. 0 means one call per passage.
func WithConcurrency(n int) BuilderOption {
	return func(b *Builder) { b.concurrency = n }
}

// NewBuilder creates a builder that embeds with embedder in document mode.
func NewBuilder(embedder embedding.Embedder, opts ...BuilderOption) *Builder {
	b := &Builder{embedder: embedder}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build embeds every passage concurrently and waits for all of them. Output
// position i holds input passage i regardless of completion order. If any
// call fails, or any vector is empty or differs in length from the first,
// no index is returned.
func (b *Builder) Build(ctx context.Context, passages []string) (models.EmbeddingIndex, error) {
	start := time.Now()
	index := make(models.EmbeddingIndex, len(passages))

	g, gctx := errgroup.WithContext(ctx)
	if b.concurrency > 0 {
		g.SetLimit(b.concurrency)
	}
	for i, text := range passages {
		g.Go(func() error {
			callStart := time.Now()
			vec, err := b.embedder.Embed(gctx, text, embedding.TaskDocument)
			b.metrics.ObserveEmbed(string(embedding.TaskDocument), time.Since(callStart))
			if err != nil {
				return fmt.Errorf("passage %d: %w", i, err)
			}
			index[i] = models.Passage{Text: text, Embedding: models.NewEmbedding(vec)}
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = checkVectors(index)
	}
	if err != nil {
		if b.logger != nil {
			b.logger.Warn("index build failed", zap.Int("passages", len(passages)), zap.Error(err))
		}
		return nil, err
	}

	if b.logger != nil {
		b.logger.Debug("index built",
			zap.Int("passages", len(index)),
			zap.Int("dimensions", index.Dimensions()),
			zap.Duration("took", time.Since(start)))
	}
	return index, nil
}

// checkVectors rejects an index whose vectors cannot all be scored against
// one query.
func checkVectors(index models.EmbeddingIndex) error {
	if len(index) == 0 {
		return nil
	}
	dims := len(index[0].Embedding.Values)
	for i, p := range index {
		n := len(p.Embedding.Values)
		switch {
		case n == 0:
			return fmt.Errorf("%w: passage %d: empty vector", embedding.ErrEmbeddingFailure, i)
		case n != dims:
			return fmt.Errorf("%w: passage %d: vector has %d dimensions, want %d",
				embedding.ErrEmbeddingFailure, i, n, dims)
		}
	}
	return nil
}
