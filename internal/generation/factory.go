package generation

import (
	"context"
	"fmt"

	"github.com/hyperjump/kotae/internal/config"
	"go.uber.org/zap"
)

// New creates the configured generator. Its options come only from cfg; two
// generators built from different configs share nothing.
func New(ctx context.Context, cfg *config.GenerationConfig, logger *zap.Logger) (Generator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var (
		gen Generator
		err error
	)
	switch cfg.Provider {
	case "gemini", "":
		key := cfg.APIKey()
		if key == "" {
			return nil, fmt.Errorf("%w: %s is not set", ErrGenerationFailure, cfg.APIKeyEnv)
		}
		gen, err = NewGeminiGenerator(ctx, key, cfg.Model, cfg.BaseURL, cfg.Options)
	case "openai":
		gen, err = NewOpenAIGenerator(cfg.APIKey(), cfg.Model, cfg.BaseURL, cfg.Options)
	case "noop":
		gen = NoopGenerator{}
	default:
		return nil, fmt.Errorf("unknown generation provider: %s (supported: gemini, openai, noop)", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s generator: %w", cfg.Provider, err)
	}
	logger.Debug("generator ready", zap.String("provider", cfg.Provider), zap.String("model", cfg.Model))
	return gen, nil
}
