// Package generation turns a grounded prompt into answer text through a
// generative model.
package generation

import (
	"context"
	"errors"
	"fmt"
)

// ErrGenerationFailure is wrapped by every error a Generator returns.
var ErrGenerationFailure = errors.New("generation failed")

// Part is one segment of candidate content.
type Part struct {
	Text string `json:"text"`
}

// Content holds the ordered parts of a candidate.
type Content struct {
	Parts []Part `json:"parts"`
}

// Candidate is one alternative returned by the model.
type Candidate struct {
	Content Content `json:"content"`
}

// Response is the provider-neutral generation result. Only the first part of
// the first candidate is consumed by callers.
type Response struct {
	Candidates []Candidate `json:"candidates"`
}

// FirstText returns candidates[0].content.parts[0].text. ok is false when the
// response has no candidates or the first candidate has no parts.
func (r *Response) FirstText() (text string, ok bool) {
	if r == nil || len(r.Candidates) == 0 || len(r.Candidates[0].Content.Parts) == 0 {
		return "", false
	}
	return r.Candidates[0].Content.Parts[0].Text, true
}

// Generator produces free-form text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (*Response, error)
	Close() error
}

func wrapFailure(err error) error {
	return fmt.Errorf("%w: %w", ErrGenerationFailure, err)
}
