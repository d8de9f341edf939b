package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hyperjump/kotae/internal/config"
)

func TestNew(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	fs, err := New(ctx, &config.StorageConfig{Backend: "file", ContextDir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if fs.Backend() != "file" {
		t.Errorf("Backend() = %s", fs.Backend())
	}

	ss, err := New(ctx, &config.StorageConfig{Backend: "sqlite", DatabasePath: filepath.Join(dir, "i.db")})
	if err != nil {
		t.Fatal(err)
	}
	defer ss.Close()
	if ss.Backend() != "sqlite" {
		t.Errorf("Backend() = %s", ss.Backend())
	}

	if _, err := New(ctx, &config.StorageConfig{Backend: "redis"}); err == nil {
		t.Error("expected error for unknown backend")
	}
	if _, err := New(ctx, &config.StorageConfig{Backend: "minio"}); err == nil {
		t.Error("expected error for minio without endpoint")
	}
}

func TestMinIOStore_objectName(t *testing.T) {
	s := &MinIOStore{prefix: "contexts/"}
	if got := s.objectName("test"); got != "contexts/test.json" {
		t.Errorf("objectName() = %s", got)
	}
}

func TestLocalPaths(t *testing.T) {
	if got := LocalPaths(&config.StorageConfig{Backend: "file", ContextDir: "/x"}); len(got) != 1 || got[0] != "/x" {
		t.Errorf("file paths = %v", got)
	}
	if got := LocalPaths(&config.StorageConfig{Backend: "minio"}); got != nil {
		t.Errorf("minio paths = %v", got)
	}
}
