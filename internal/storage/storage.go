// Package storage persists embedding indexes under plain-name keys.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hyperjump/kotae/internal/models"
)

var (
	// ErrIndexPersistFailure is returned when an index cannot be written.
	ErrIndexPersistFailure = errors.New("index persist failed")
	// ErrIndexLoadFailure is returned when an index is missing or unreadable.
	ErrIndexLoadFailure = errors.New("index load failed")
	// ErrIndexCorrupt is returned when stored content is not a sequence of passages.
	ErrIndexCorrupt = errors.New("index corrupt")
	// ErrInvalidKey is returned for keys that are empty or contain path elements.
	ErrInvalidKey = errors.New("invalid index key")
)

// IndexStore saves and loads a whole index under a key. Save overwrites any
// prior content at the key; there is no merge or versioning.
type IndexStore interface {
	Save(ctx context.Context, key string, index models.EmbeddingIndex) error
	Load(ctx context.Context, key string) (models.EmbeddingIndex, error)
	List(ctx context.Context) ([]IndexInfo, error)
	Backend() string
	Close() error
}

// IndexInfo describes a stored index without decoding it.
type IndexInfo struct {
	Key       string    `json:"key"`
	SizeBytes int64     `json:"size_bytes"`
	UpdatedAt time.Time `json:"updated_at"`
	BuildID   string    `json:"build_id,omitempty"`
}

// ValidateKey checks that key is a plain name usable as a file or object name.
func ValidateKey(key string) error {
	switch {
	case strings.TrimSpace(key) == "":
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	case key == "." || key == "..":
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	case strings.ContainsAny(key, "/\\\x00"):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidKey, key)
	}
	return nil
}

func persistFailure(key string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrIndexPersistFailure, key, err)
}

func loadFailure(key string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrIndexLoadFailure, key, err)
}
