package vector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/metrics"
	"github.com/hyperjump/kotae/internal/models"
	"go.uber.org/zap"
)

// ErrEmptyIndex is returned when ranking against an index with no passages.
var ErrEmptyIndex = errors.New("index has no passages")

// Ranker embeds a question in query mode and selects the best passage.
type Ranker struct {
	embedder embedding.Embedder
	logger   *zap.Logger // optional
	metrics  *metrics.Metrics
}

// RankerOption configures a Ranker.
type RankerOption func(*Ranker)

// WithLogger sets a logger for best-match debug output.
func WithLogger(l *zap.Logger) RankerOption {
	return func(r *Ranker) { r.logger = l }
}

// WithMetrics records embed duration and best score.
func WithMetrics(m *metrics.Metrics) RankerOption {
	return func(r *Ranker) { r.metrics = m }
}

// NewRanker creates a ranker that embeds questions with embedder.
func NewRanker(embedder embedding.Embedder, opts ...RankerOption) *Ranker {
	r := &Ranker{embedder: embedder}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rank embeds the query with TaskQuery and returns the highest scoring passage.
// The only I/O is the single embedding call; an empty index fails before it.
func (r *Ranker) Rank(ctx context.Context, q models.Query, index models.EmbeddingIndex) (models.ScoredMatch, error) {
	if len(index) == 0 {
		return models.ScoredMatch{}, ErrEmptyIndex
	}
	start := time.Now()
	vec, err := r.embedder.Embed(ctx, q.Text, embedding.TaskQuery)
	r.metrics.ObserveEmbed(string(embedding.TaskQuery), time.Since(start))
	if err != nil {
		return models.ScoredMatch{}, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vec) == 0 {
		return models.ScoredMatch{}, fmt.Errorf("%w: empty query vector", embedding.ErrEmbeddingFailure)
	}

	match, err := Best(vec, index)
	if err != nil {
		return models.ScoredMatch{}, err
	}
	r.metrics.ObserveScore(match.Score)
	if r.logger != nil {
		r.logger.Debug("best match",
			zap.Int("index", match.Index),
			zap.Float64("score", match.Score),
			zap.Float64("query_norm", L2Norm(vec)),
			zap.Int("passages", len(index)))
	}
	return match, nil
}
