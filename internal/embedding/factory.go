package embedding

import (
	"context"
	"fmt"

	"github.com/hyperjump/kotae/internal/config"
	"go.uber.org/zap"
)

// Provider names the embedding backend.
type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderOpenAI Provider = "openai"
	ProviderONNX   Provider = "onnx"
	ProviderMock   Provider = "mock"
)

// New creates the configured embedder. When CacheSize is positive the
// embedder is wrapped in an LRU cache keyed by task type and text.
func New(ctx context.Context, cfg *config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		emb Embedder
		err error
	)
	switch Provider(cfg.Provider) {
	case ProviderGemini, "":
		key := cfg.APIKey()
		if key == "" {
			return nil, fmt.Errorf("%w: %s is not set", ErrEmbeddingFailure, cfg.APIKeyEnv)
		}
		emb, err = NewGeminiEmbedder(ctx, key, cfg.Model, cfg.BaseURL, cfg.Dimensions)
	case ProviderOpenAI:
		key := cfg.APIKey()
		if key == "" && cfg.BaseURL == "" {
			return nil, fmt.Errorf("%w: %s is not set", ErrEmbeddingFailure, cfg.APIKeyEnv)
		}
		emb, err = NewOpenAIEmbedder(key, cfg.Model, cfg.BaseURL, cfg.Dimensions)
	case ProviderONNX:
		emb, err = newONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens)
	case ProviderMock:
		emb = NewMockEmbedder(cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: gemini, openai, onnx, mock)", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s embedder: %w", cfg.Provider, err)
	}

	logger.Debug("embedder ready",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model),
		zap.Int("dimensions", emb.Dimensions()),
		zap.Int("cache_size", cfg.CacheSize))

	if cfg.CacheSize > 0 {
		return NewCachedEmbedder(emb, cfg.CacheSize), nil
	}
	return emb, nil
}
