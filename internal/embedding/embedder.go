// Package embedding maps text to vectors through local or remote embedding models.
package embedding

import (
	"context"
	"errors"
)

// ErrEmbeddingFailure is wrapped by every error an Embedder returns.
var ErrEmbeddingFailure = errors.New("embedding failed")

// TaskType hints what the embedded text will be used for. Providers may return
// different vectors for the same text under different task types.
type TaskType string

const (
	// TaskDocument is used for passages when an index is built.
	TaskDocument TaskType = "DOCUMENT"
	// TaskQuery is used for the question at ranking time.
	TaskQuery TaskType = "QUERY"
)

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string, task TaskType) ([]float32, error)
	Dimensions() int
	Close() error
}
