package embedding

import (
	"context"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

var openAIDimensions = map[string]int{
	"text-embedding-3-large": 3072,
	"text-embedding-3-small": 1536,
	"text-embedding-ada-002": 1536,
}

// OpenAIEmbedder uses an OpenAI-compatible embeddings endpoint. The API has no
// task types, so query and document vectors are identical.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	dimensions int
}

// NewOpenAIEmbedder creates an embedder. baseURL may be empty for the public API;
// a self-hosted baseURL may be used without a key.
func NewOpenAIEmbedder(apiKey, model, baseURL string, dimensions int) (*OpenAIEmbedder, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" && baseURL == "" {
		return nil, errors.New("openai api key not configured")
	}
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	cc := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cc.BaseURL = baseURL
	}
	if dimensions <= 0 {
		if d, ok := openAIDimensions[model]; ok {
			dimensions = d
		} else {
			dimensions = 1536
		}
	}
	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(cc),
		model:      model,
		dimensions: dimensions,
	}, nil
}

// Embed requests a single embedding.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string, _ TaskType) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, wrapFailure(errors.New("text is empty"))
	}
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: []string{text},
	})
	if err != nil {
		return nil, wrapFailure(err)
	}
	if len(resp.Data) == 0 {
		return nil, wrapFailure(errors.New("embedding response empty"))
	}
	out := make([]float32, len(resp.Data[0].Embedding))
	copy(out, resp.Data[0].Embedding)
	return out, nil
}

// Dimensions returns the embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op.
func (e *OpenAIEmbedder) Close() error {
	return nil
}
