package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  context_dir: "/tmp/kotae"
embedding:
  provider: mock
  dimensions: 16
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Storage.ContextDir != "/tmp/kotae" {
		t.Errorf("context_dir = %s", cfg.Storage.ContextDir)
	}
	if cfg.Embedding.Provider != "mock" || cfg.Embedding.Dimensions != 16 {
		t.Errorf("unexpected embedding config: %+v", cfg.Embedding)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	path := writeConfig(t, `
storage:
  backend: sqlite
  database_path: "./data/indexes.db"
  context_dir: "./contexts"
ingest:
  source_path: "./docs/report.pdf"
`)
	dir := filepath.Dir(path)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "data", "indexes.db"); cfg.Storage.DatabasePath != want {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, want)
	}
	if want := filepath.Join(dir, "contexts"); cfg.Storage.ContextDir != want {
		t.Errorf("context_dir = %s, want %s", cfg.Storage.ContextDir, want)
	}
	if want := filepath.Join(dir, "docs", "report.pdf"); cfg.Ingest.SourcePath != want {
		t.Errorf("source_path = %s, want %s", cfg.Ingest.SourcePath, want)
	}
}

func TestLoad_rejectsUnknownProvider(t *testing.T) {
	path := writeConfig(t, `
embedding:
  provider: word2vec
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for unknown provider")
	}
}

func TestLoad_rejectsUnknownBackend(t *testing.T) {
	path := writeConfig(t, `
storage:
  backend: redis
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for unknown backend")
	}
}

func TestLoad_rejectsOverlapLargerThanChunk(t *testing.T) {
	path := writeConfig(t, `
ingest:
  chunk_size: 100
  chunk_overlap: 200
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for overlap > chunk size")
	}
}

func TestLoad_durations(t *testing.T) {
	path := writeConfig(t, `
watch:
  debounce: 2s
timeouts:
  request: 30s
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Watch.Debounce != 2*time.Second {
		t.Errorf("debounce = %v", cfg.Watch.Debounce)
	}
	if cfg.Timeouts.Request != 30*time.Second {
		t.Errorf("request timeout = %v", cfg.Timeouts.Request)
	}
}

func TestLoad_dotEnvBesideConfig(t *testing.T) {
	path := writeConfig(t, `
embedding:
  api_key_env: KOTAE_TEST_EMBED_KEY
`)
	envPath := filepath.Join(filepath.Dir(path), ".env")
	if err := os.WriteFile(envPath, []byte("KOTAE_TEST_EMBED_KEY=from-dotenv\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("KOTAE_TEST_EMBED_KEY") })

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.Embedding.APIKey(); got != "from-dotenv" {
		t.Errorf("APIKey() = %q, want from-dotenv", got)
	}
}

func TestLoad_dotEnvDoesNotOverrideEnvironment(t *testing.T) {
	t.Setenv("KOTAE_TEST_GEN_KEY", "from-env")
	path := writeConfig(t, `
generation:
  api_key_env: KOTAE_TEST_GEN_KEY
`)
	envPath := filepath.Join(filepath.Dir(path), ".env")
	if err := os.WriteFile(envPath, []byte("KOTAE_TEST_GEN_KEY=from-dotenv\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.Generation.APIKey(); got != "from-env" {
		t.Errorf("APIKey() = %q, want from-env", got)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" {
		t.Errorf("default host: got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Storage.Backend != "file" || cfg.Storage.DefaultKey != "test" {
		t.Errorf("storage defaults: %+v", cfg.Storage)
	}
	if cfg.Embedding.Model != "embedding-001" || cfg.Embedding.APIKeyEnv != "GEMINI_API_KEY" {
		t.Errorf("embedding defaults: %+v", cfg.Embedding)
	}
	if cfg.Generation.Model != "gemini-pro" {
		t.Errorf("generation model: got %s", cfg.Generation.Model)
	}
	opts := cfg.Generation.Options
	if len(opts.StopSequences) != 1 || opts.StopSequences[0] != "chup" {
		t.Errorf("stop sequences: got %v", opts.StopSequences)
	}
	if opts.MaxOutputTokens != 4096 {
		t.Errorf("max output tokens: got %d", opts.MaxOutputTokens)
	}
	if *opts.Temperature != 0.8 || *opts.TopP != 0.1 || *opts.TopK != 16 {
		t.Errorf("sampling defaults: temp=%v topP=%v topK=%v", *opts.Temperature, *opts.TopP, *opts.TopK)
	}
	if got := cfg.Answer.ThresholdOrDefault(); got != 0.5 {
		t.Errorf("threshold: got %v", got)
	}
	if cfg.Watch.Debounce != 400*time.Millisecond {
		t.Errorf("debounce: got %v", cfg.Watch.Debounce)
	}
}

func TestApplyDefaults_openAIProvider(t *testing.T) {
	cfg := &Config{
		Embedding:  EmbeddingConfig{Provider: "openai"},
		Generation: GenerationConfig{Provider: "openai"},
	}
	ApplyDefaults(cfg)
	if cfg.Embedding.Model != "text-embedding-3-small" || cfg.Embedding.APIKeyEnv != "OPENAI_API_KEY" {
		t.Errorf("embedding defaults: %+v", cfg.Embedding)
	}
	if cfg.Generation.APIKeyEnv != "OPENAI_API_KEY" {
		t.Errorf("generation api_key_env: got %s", cfg.Generation.APIKeyEnv)
	}
}

func TestApplyDefaults_keepsExplicitZeroTemperature(t *testing.T) {
	zero := float32(0)
	cfg := &Config{Generation: GenerationConfig{Options: GenerationOptions{Temperature: &zero}}}
	ApplyDefaults(cfg)
	if *cfg.Generation.Options.Temperature != 0 {
		t.Errorf("temperature should stay 0, got %v", *cfg.Generation.Options.Temperature)
	}
}

func TestAnswerConfig_ThresholdOrDefault(t *testing.T) {
	t.Run("nil_returns_default", func(t *testing.T) {
		a := AnswerConfig{}
		if got := a.ThresholdOrDefault(); got != DefaultThreshold {
			t.Errorf("ThresholdOrDefault() = %v, want %v", got, DefaultThreshold)
		}
	})
	t.Run("explicit_zero", func(t *testing.T) {
		z := 0.0
		a := AnswerConfig{Threshold: &z}
		if got := a.ThresholdOrDefault(); got != 0 {
			t.Errorf("ThresholdOrDefault() = %v, want 0", got)
		}
	})
}

func TestDefault(t *testing.T) {
	dir := t.TempDir()
	cfg := Default(dir)
	if cfg.Storage.ContextDir != filepath.Join(dir, "contexts") {
		t.Errorf("context_dir = %s", cfg.Storage.ContextDir)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")
	cfg := &Config{
		Server:  ServerConfig{Host: "localhost", Port: 9090},
		Storage: StorageConfig{DatabasePath: "/tmp/db"},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
}
