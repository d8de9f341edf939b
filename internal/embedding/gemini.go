package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiEmbedder calls the Gemini embedContent API.
type GeminiEmbedder struct {
	client     *genai.Client
	model      string
	dimensions int
}

// NewGeminiEmbedder creates a client for the given model. baseURL may be empty.
func NewGeminiEmbedder(ctx context.Context, apiKey, model, baseURL string, dimensions int) (*GeminiEmbedder, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key not configured")
	}
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiEmbedder{client: client, model: model, dimensions: dimensions}, nil
}

// geminiTaskType maps a task hint to the API's task type enum.
func geminiTaskType(task TaskType) string {
	switch task {
	case TaskQuery:
		return "RETRIEVAL_QUERY"
	case TaskDocument:
		return "RETRIEVAL_DOCUMENT"
	default:
		return ""
	}
}

// Embed embeds text with the task type passed through to the API.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string, task TaskType) ([]float32, error) {
	resp, err := e.client.Models.EmbedContent(ctx, e.model, genai.Text(text), &genai.EmbedContentConfig{
		TaskType: geminiTaskType(task),
	})
	if err != nil {
		return nil, wrapFailure(err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, wrapFailure(errors.New("embedding response empty"))
	}
	values := resp.Embeddings[0].Values
	out := make([]float32, len(values))
	copy(out, values)
	return out, nil
}

// Dimensions returns the configured dimension.
func (e *GeminiEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op; the client holds no resources that need releasing.
func (e *GeminiEmbedder) Close() error {
	return nil
}
