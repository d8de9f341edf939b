package generation

import "context"

// NoopGenerator returns a response with no candidates. It lets the retrieval
// path run without a generative model; every gated question ends NotFound.
type NoopGenerator struct{}

// Generate returns an empty response.
func (NoopGenerator) Generate(ctx context.Context, prompt string) (*Response, error) {
	return &Response{}, nil
}

// Close is a no-op.
func (NoopGenerator) Close() error {
	return nil
}
