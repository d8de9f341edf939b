package config

import "time"

// DefaultThreshold is the minimum raw inner-product score a match must exceed
// before an answer is generated.
const DefaultThreshold = 0.5

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "file"
	}
	if cfg.Storage.ContextDir == "" {
		cfg.Storage.ContextDir = "/usr/local/var/kotae/contexts"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/kotae/data/indexes.db"
	}
	if cfg.Storage.DefaultKey == "" {
		cfg.Storage.DefaultKey = "test"
	}
	if cfg.Storage.MinIO.Bucket == "" {
		cfg.Storage.MinIO.Bucket = "kotae"
	}
	if cfg.Storage.MinIO.Prefix == "" {
		cfg.Storage.MinIO.Prefix = "contexts/"
	}
	if cfg.Storage.MinIO.AccessKeyEnv == "" {
		cfg.Storage.MinIO.AccessKeyEnv = "MINIO_ACCESS_KEY"
	}
	if cfg.Storage.MinIO.SecretKeyEnv == "" {
		cfg.Storage.MinIO.SecretKeyEnv = "MINIO_SECRET_KEY"
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "gemini"
	}
	if cfg.Embedding.Model == "" {
		switch cfg.Embedding.Provider {
		case "openai":
			cfg.Embedding.Model = "text-embedding-3-small"
		default:
			cfg.Embedding.Model = "embedding-001"
		}
	}
	if cfg.Embedding.APIKeyEnv == "" {
		cfg.Embedding.APIKeyEnv = apiKeyEnvFor(cfg.Embedding.Provider)
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/kotae/models/multilingual-e5-small.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		if cfg.Embedding.Provider == "openai" {
			cfg.Embedding.Dimensions = 1536
		} else {
			cfg.Embedding.Dimensions = 768
		}
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1000
	}

	if cfg.Generation.Provider == "" {
		cfg.Generation.Provider = "gemini"
	}
	if cfg.Generation.Model == "" {
		switch cfg.Generation.Provider {
		case "openai":
			cfg.Generation.Model = "gpt-4o-mini"
		default:
			cfg.Generation.Model = "gemini-pro"
		}
	}
	if cfg.Generation.APIKeyEnv == "" {
		cfg.Generation.APIKeyEnv = apiKeyEnvFor(cfg.Generation.Provider)
	}
	opts := &cfg.Generation.Options
	if opts.StopSequences == nil {
		opts.StopSequences = []string{"chup"}
	}
	if opts.MaxOutputTokens == 0 {
		opts.MaxOutputTokens = 4096
	}
	if opts.Temperature == nil {
		t := float32(0.8)
		opts.Temperature = &t
	}
	if opts.TopP == nil {
		p := float32(0.1)
		opts.TopP = &p
	}
	if opts.TopK == nil {
		k := 16
		opts.TopK = &k
	}

	if cfg.Answer.Threshold == nil {
		t := DefaultThreshold
		cfg.Answer.Threshold = &t
	}

	if cfg.Ingest.Extensions == nil {
		cfg.Ingest.Extensions = []string{".pdf", ".txt", ".md", ".rst", ".docx", ".xlsx", ".pptx", ".odt", ".odp", ".ods"}
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 400 * time.Millisecond
	}
}

func apiKeyEnvFor(provider string) string {
	switch provider {
	case "openai":
		return "OPENAI_API_KEY"
	case "gemini":
		return "GEMINI_API_KEY"
	default:
		return ""
	}
}
