package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hyperjump/kotae/internal/config"
	"google.golang.org/genai"
)

// GeminiGenerator calls the Gemini generateContent API.
type GeminiGenerator struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
}

// NewGeminiGenerator creates a generator for model with its own sampling
// options. baseURL may be empty.
func NewGeminiGenerator(ctx context.Context, apiKey, model, baseURL string, opts config.GenerationOptions) (*GeminiGenerator, error) {
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
	return &GeminiGenerator{client: client, model: model, config: geminiConfig(opts)}, nil
}

func geminiConfig(opts config.GenerationOptions) *genai.GenerateContentConfig {
	gc := &genai.GenerateContentConfig{
		StopSequences: opts.StopSequences,
		Temperature:   opts.Temperature,
		TopP:          opts.TopP,
	}
	if opts.MaxOutputTokens > 0 {
		gc.MaxOutputTokens = int32(opts.MaxOutputTokens)
	}
	if opts.TopK != nil {
		gc.TopK = genai.Ptr(float32(*opts.TopK))
	}
	return gc
}

// Generate sends the prompt and maps candidates/content/parts one to one.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (*Response, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), g.config)
	if err != nil {
		return nil, wrapFailure(err)
	}
	out := &Response{}
	if resp == nil {
		return out, nil
	}
	for _, c := range resp.Candidates {
		if c == nil {
			continue
		}
		var cand Candidate
		if c.Content != nil {
			for _, p := range c.Content.Parts {
				if p == nil {
					continue
				}
				cand.Content.Parts = append(cand.Content.Parts, Part{Text: p.Text})
			}
		}
		out.Candidates = append(out.Candidates, cand)
	}
	return out, nil
}

// Close is a no-op.
func (g *GeminiGenerator) Close() error {
	return nil
}
