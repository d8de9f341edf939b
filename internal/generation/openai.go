package generation

import (
	"context"
	"errors"
	"strings"

	"github.com/hyperjump/kotae/internal/config"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIGenerator uses an OpenAI-compatible chat completions endpoint. Each
// choice becomes a candidate with a single text part. TopK has no equivalent
// and is ignored.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
	opts   config.GenerationOptions
}

// NewOpenAIGenerator creates a generator. A self-hosted baseURL may be used
// without a key.
func NewOpenAIGenerator(apiKey, model, baseURL string, opts config.GenerationOptions) (*OpenAIGenerator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" && baseURL == "" {
		return nil, errors.New("openai api key not configured")
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	cc := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cc.BaseURL = baseURL
	}
	return &OpenAIGenerator{client: openai.NewClientWithConfig(cc), model: model, opts: opts}, nil
}

func (g *OpenAIGenerator) request(prompt string) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Stop:      g.opts.StopSequences,
		MaxTokens: g.opts.MaxOutputTokens,
	}
	if g.opts.Temperature != nil {
		req.Temperature = *g.opts.Temperature
	}
	if g.opts.TopP != nil {
		req.TopP = *g.opts.TopP
	}
	return req
}

// Generate sends the prompt as a single user message.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (*Response, error) {
	resp, err := g.client.CreateChatCompletion(ctx, g.request(prompt))
	if err != nil {
		return nil, wrapFailure(err)
	}
	out := &Response{Candidates: make([]Candidate, 0, len(resp.Choices))}
	for _, ch := range resp.Choices {
		out.Candidates = append(out.Candidates, Candidate{
			Content: Content{Parts: []Part{{Text: ch.Message.Content}}},
		})
	}
	return out, nil
}

// Close is a no-op.
func (g *OpenAIGenerator) Close() error {
	return nil
}
