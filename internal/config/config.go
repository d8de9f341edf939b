// Package config provides configuration loading and structs for kotae.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Answer     AnswerConfig     `yaml:"answer"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Watch      WatchConfig      `yaml:"watch"`
	Timeouts   TimeoutConfig    `yaml:"timeouts"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port" validate:"min=1,max=65535"`
}

// StorageConfig selects where indexes are persisted.
type StorageConfig struct {
	Backend      string      `yaml:"backend" validate:"oneof=file sqlite minio"`
	ContextDir   string      `yaml:"context_dir"`
	DatabasePath string      `yaml:"database_path"`
	DefaultKey   string      `yaml:"default_key" validate:"required"`
	MinIO        MinIOConfig `yaml:"minio"`
}

// MinIOConfig holds object storage settings for the minio backend.
// Credentials are read from the named environment variables.
type MinIOConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Bucket       string `yaml:"bucket"`
	Prefix       string `yaml:"prefix"`
	AccessKeyEnv string `yaml:"access_key_env"`
	SecretKeyEnv string `yaml:"secret_key_env"`
	UseSSL       bool   `yaml:"use_ssl"`
}

// AccessKey returns the access key from the environment.
func (m MinIOConfig) AccessKey() string { return os.Getenv(m.AccessKeyEnv) }

// SecretKey returns the secret key from the environment.
func (m MinIOConfig) SecretKey() string { return os.Getenv(m.SecretKeyEnv) }

// EmbeddingConfig configures the embedding model.
type EmbeddingConfig struct {
	Provider    string `yaml:"provider" validate:"oneof=gemini openai onnx mock"`
	Model       string `yaml:"model"`
	APIKeyEnv   string `yaml:"api_key_env"`
	BaseURL     string `yaml:"base_url"`
	ModelPath   string `yaml:"model_path"`
	Dimensions  int    `yaml:"dimensions" validate:"min=1"`
	MaxTokens   int    `yaml:"max_tokens" validate:"min=1"`
	CacheSize   int    `yaml:"cache_size" validate:"min=0"`
	Concurrency int    `yaml:"concurrency" validate:"min=0"`
}

// APIKey returns the key from the configured environment variable.
func (e EmbeddingConfig) APIKey() string { return os.Getenv(e.APIKeyEnv) }

// GenerationConfig configures the answer model. It is independent of the
// embedding model's configuration.
type GenerationConfig struct {
	Provider  string            `yaml:"provider" validate:"oneof=gemini openai noop"`
	Model     string            `yaml:"model"`
	APIKeyEnv string            `yaml:"api_key_env"`
	BaseURL   string            `yaml:"base_url"`
	Options   GenerationOptions `yaml:"options"`
}

// APIKey returns the key from the configured environment variable.
func (g GenerationConfig) APIKey() string { return os.Getenv(g.APIKeyEnv) }

// GenerationOptions are the sampling options sent with each generation call.
// Nil pointers leave the provider default in place.
type GenerationOptions struct {
	StopSequences   []string `yaml:"stop_sequences"`
	MaxOutputTokens int      `yaml:"max_output_tokens" validate:"min=0"`
	Temperature     *float32 `yaml:"temperature" validate:"omitempty,min=0,max=2"`
	TopP            *float32 `yaml:"top_p" validate:"omitempty,min=0,max=1"`
	TopK            *int     `yaml:"top_k" validate:"omitempty,min=1"`
}

// AnswerConfig holds the threshold gate setting.
type AnswerConfig struct {
	Threshold *float64 `yaml:"threshold"`
}

// ThresholdOrDefault returns the configured threshold or DefaultThreshold.
func (a AnswerConfig) ThresholdOrDefault() float64 {
	if a.Threshold != nil {
		return *a.Threshold
	}
	return DefaultThreshold
}

// IngestConfig controls how a source document becomes passages.
// ChunkSize 0 keeps each extracted segment (e.g. a PDF page) as one passage.
type IngestConfig struct {
	SourcePath   string   `yaml:"source_path"`
	Extensions   []string `yaml:"extensions"`
	ChunkSize    int      `yaml:"chunk_size" validate:"min=0"`
	ChunkOverlap int      `yaml:"chunk_overlap" validate:"min=0,ltefield=ChunkSize"`
}

// WatchConfig holds source watch settings.
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
}

// TimeoutConfig bounds blocking calls. Zero means no timeout.
type TimeoutConfig struct {
	Request time.Duration `yaml:"request"`
}

// Load reads and parses the config file at path, loads a sibling .env file if
// present, expands paths, applies defaults, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	configDir := filepath.Dir(path)
	if err := LoadDotEnv(filepath.Join(configDir, ".env")); err != nil {
		return nil, err
	}

	ApplyDefaults(&cfg)

	cfg.Storage.ContextDir = expandPath(cfg.Storage.ContextDir, configDir)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	if cfg.Ingest.SourcePath != "" {
		cfg.Ingest.SourcePath = expandPath(cfg.Ingest.SourcePath, configDir)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a validated config with defaults and storage under dir.
// Used when no config file exists.
func Default(dir string) *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	cfg.Storage.ContextDir = filepath.Join(dir, "contexts")
	cfg.Storage.DatabasePath = filepath.Join(dir, "contexts", "indexes.db")
	return &cfg
}

// Validate checks enum and range constraints.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LoadDotEnv loads environment variables from the given files. Missing files
// are skipped; variables already set in the environment win.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
