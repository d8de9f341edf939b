// Package pipeline wires index building, persistence, ranking, and the answer
// gate into the operations exposed by the CLI and the HTTP server.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hyperjump/kotae/internal/answer"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/generation"
	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/metrics"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
	"go.uber.org/zap"
)

// Engine runs build, load, and ask against one index store.
type Engine struct {
	store     storage.IndexStore
	embedder  embedding.Embedder
	generator generation.Generator
	source    *indexer.Source

	builder *indexer.Builder
	ranker  *vector.Ranker
	gate    *answer.Gate

	threshold   float64
	concurrency int
	timeout     time.Duration
	diskPaths   []string
	logger      *zap.Logger // optional
	metrics     *metrics.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets a logger passed to every stage.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics sets the metrics passed to every stage.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithThreshold sets the gate threshold. Default config.DefaultThreshold.
func WithThreshold(t float64) Option {
	return func(e *Engine) { e.threshold = t }
}

// WithConcurrency bounds in-flight embedding calls during a build.
func WithConcurrency(n int) Option {
	return func(e *Engine) { e.concurrency = n }
}

// WithTimeout bounds each Build and Ask call. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithSource sets how documents become passages for BuildFromFile.
func WithSource(s *indexer.Source) Option {
	return func(e *Engine) { e.source = s }
}

// WithDiskPaths sets the local paths summed for Status disk usage.
func WithDiskPaths(paths ...string) Option {
	return func(e *Engine) { e.diskPaths = paths }
}

// New creates an engine. The store, embedder, and generator are owned by the
// engine and released by Close.
func New(store storage.IndexStore, embedder embedding.Embedder, generator generation.Generator, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		embedder:  embedder,
		generator: generator,
		threshold: config.DefaultThreshold,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.source == nil {
		e.source = indexer.NewSource(nil, nil, nil)
	}
	e.builder = indexer.NewBuilder(embedder,
		indexer.WithLogger(e.logger),
		indexer.WithMetrics(e.metrics),
		indexer.WithConcurrency(e.concurrency))
	e.ranker = vector.NewRanker(embedder, vector.WithLogger(e.logger), vector.WithMetrics(e.metrics))
	e.gate = answer.NewGate(e.threshold, answer.WithLogger(e.logger), answer.WithMetrics(e.metrics))
	return e
}

// BuildResult reports a build. A save failure does not fail the build: Index
// is still usable for the current run and PersistErr holds the cause.
type BuildResult struct {
	Key        string                `json:"key"`
	Index      models.EmbeddingIndex `json:"-"`
	Passages   int                   `json:"passages"`
	Dimensions int                   `json:"dimensions"`
	Persisted  bool                  `json:"persisted"`
	PersistErr error                 `json:"-"`
	Duration   time.Duration         `json:"duration_ns"`
}

// Build embeds passages and saves the index under key.
func (e *Engine) Build(ctx context.Context, key string, passages []string) (*BuildResult, error) {
	if err := storage.ValidateKey(key); err != nil {
		return nil, err
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	index, err := e.builder.Build(ctx, passages)
	if err != nil {
		e.metrics.ObserveBuild(false, time.Since(start))
		return nil, fmt.Errorf("build index %s: %w", key, err)
	}
	e.metrics.ObserveBuild(true, time.Since(start))
	e.metrics.SetPassages(key, len(index))

	res := &BuildResult{
		Key:        key,
		Index:      index,
		Passages:   len(index),
		Dimensions: index.Dimensions(),
		Duration:   time.Since(start),
	}
	if err := e.store.Save(ctx, key, index); err != nil {
		res.PersistErr = err
		e.metrics.PersistFailed()
		if e.logger != nil {
			e.logger.Warn("index persist failed; in-memory index is still usable", zap.String("key", key), zap.Error(err))
		}
		return res, nil
	}
	res.Persisted = true
	if e.logger != nil {
		e.logger.Info("index built",
			zap.String("key", key),
			zap.String("backend", e.store.Backend()),
			zap.Int("passages", res.Passages),
			zap.Duration("took", res.Duration))
	}
	return res, nil
}

// BuildFromFile extracts passages from the document at path and builds key.
func (e *Engine) BuildFromFile(ctx context.Context, key, path string) (*BuildResult, error) {
	passages, err := e.source.Passages(path)
	if err != nil {
		return nil, fmt.Errorf("read passages from %s: %w", path, err)
	}
	if e.logger != nil {
		e.logger.Debug("passages extracted", zap.String("path", path), zap.Int("passages", len(passages)))
	}
	return e.Build(ctx, key, passages)
}

// Load returns the stored index for key.
func (e *Engine) Load(ctx context.Context, key string) (models.EmbeddingIndex, error) {
	index, err := e.store.Load(ctx, key)
	if err != nil {
		if e.logger != nil {
			e.logger.Error("index load failed", zap.String("key", key), zap.Error(err))
		}
		return nil, err
	}
	e.metrics.SetPassages(key, len(index))
	if e.logger != nil {
		e.logger.Debug("index loaded", zap.String("key", key), zap.Int("passages", len(index)))
	}
	return index, nil
}

// Ask loads key and answers question against it. A load failure aborts
// before the question is embedded.
func (e *Engine) Ask(ctx context.Context, key, question string) (*models.Answer, error) {
	q := models.Query{Text: question}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	index, err := e.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	ans, err := e.ask(ctx, q, index)
	if err != nil {
		return nil, err
	}
	ans.Key = key
	return ans, nil
}

// AskIndex answers question against an index already in memory.
func (e *Engine) AskIndex(ctx context.Context, question string, index models.EmbeddingIndex) (*models.Answer, error) {
	q := models.Query{Text: question}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	return e.ask(ctx, q, index)
}

func (e *Engine) ask(ctx context.Context, q models.Query, index models.EmbeddingIndex) (*models.Answer, error) {
	start := time.Now()
	match, err := e.ranker.Rank(ctx, q, index)
	if err != nil {
		return nil, err
	}
	result := e.gate.Decide(ctx, q.Text, match, e.generator)
	return &models.Answer{
		Question:  q.Text,
		Result:    result,
		Match:     match,
		QueryTime: time.Since(start).Milliseconds(),
	}, nil
}

// RunResult is the outcome of an end-to-end run.
type RunResult struct {
	Build  *BuildResult   `json:"build"`
	Answer *models.Answer `json:"answer"`
}

// Run builds key from the document at path, reloads it from the store, and
// answers question. When the save failed, the freshly built index is used
// instead of reloading.
func (e *Engine) Run(ctx context.Context, key, path, question string) (*RunResult, error) {
	build, err := e.BuildFromFile(ctx, key, path)
	if err != nil {
		return nil, err
	}
	var ans *models.Answer
	if build.Persisted {
		ans, err = e.Ask(ctx, key, question)
	} else {
		ans, err = e.AskIndex(ctx, question, build.Index)
		if ans != nil {
			ans.Key = key
		}
	}
	if err != nil {
		return &RunResult{Build: build}, err
	}
	return &RunResult{Build: build, Answer: ans}, nil
}

// Status describes the store and the index under one key.
type Status struct {
	Backend        string              `json:"backend"`
	Key            string              `json:"key"`
	Passages       int                 `json:"passages"`
	Dimensions     int                 `json:"dimensions"`
	Threshold      float64             `json:"threshold"`
	DiskUsageBytes int64               `json:"disk_usage_bytes"`
	Indexes        []storage.IndexInfo `json:"indexes"`
	LoadError      string              `json:"load_error,omitempty"`
}

// Status lists stored indexes and summarizes key. A key that fails to load
// is reported in LoadError rather than failing the call.
func (e *Engine) Status(ctx context.Context, key string) (*Status, error) {
	list, err := e.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list indexes: %w", err)
	}
	st := &Status{
		Backend:   e.store.Backend(),
		Key:       key,
		Threshold: e.threshold,
		Indexes:   list,
	}
	if len(e.diskPaths) > 0 {
		if n, err := storage.DiskUsageBytes(e.diskPaths...); err == nil {
			st.DiskUsageBytes = n
		}
	}
	index, err := e.store.Load(ctx, key)
	if err != nil {
		st.LoadError = err.Error()
		return st, nil
	}
	st.Passages = len(index)
	st.Dimensions = index.Dimensions()
	return st, nil
}

// Threshold returns the gate threshold.
func (e *Engine) Threshold() float64 {
	return e.threshold
}

// Close releases the generator, embedder, and store.
func (e *Engine) Close() error {
	var errs []error
	if e.generator != nil {
		errs = append(errs, e.generator.Close())
	}
	if e.embedder != nil {
		errs = append(errs, e.embedder.Close())
	}
	if e.store != nil {
		errs = append(errs, e.store.Close())
	}
	return errors.Join(errs...)
}

func (e *Engine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout > 0 {
		return context.WithTimeout(ctx, e.timeout)
	}
	return context.WithCancel(ctx)
}
