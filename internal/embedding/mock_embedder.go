package embedding

import (
	"context"
	"math"
)

// MockEmbedder is a deterministic offline embedder. The same text and task type
// always yield the same vector; query and document vectors differ slightly.
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder returns an embedder that produces deterministic embeddings of the given dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 768
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed returns a deterministic embedding based on the text hash.
func (e *MockEmbedder) Embed(ctx context.Context, text string, task TaskType) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, wrapFailure(err)
	}
	h := HashString(text)
	skew := 0.0
	if task == TaskQuery {
		skew = 0.001
	}
	emb := make([]float32, e.dimensions)
	for i := 0; i < e.dimensions; i++ {
		emb[i] = float32(math.Sin(float64(h*(i+1)))*0.1 + 0.01 + skew)
	}
	return emb, nil
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for MockEmbedder.
func (e *MockEmbedder) Close() error {
	return nil
}
