// Package answer decides whether a retrieved passage is good enough to ground
// a generated answer.
package answer

import (
	"context"
	"fmt"

	"github.com/hyperjump/kotae/internal/generation"
	"github.com/hyperjump/kotae/internal/metrics"
	"github.com/hyperjump/kotae/internal/models"
	"go.uber.org/zap"
)

// Apology is returned when the best match does not clear the threshold.
const Apology = "I'm sorry, I couldn't find a relevant answer to your question."

// Prompt embeds the literal question and passage text in the fixed template.
func Prompt(question, passage string) string {
	return fmt.Sprintf("QUESTION: %s PASSAGE: %s ANSWER:", question, passage)
}

// Gate compares a match score to a fixed threshold.
type Gate struct {
	threshold float64
	logger    *zap.Logger // optional
	metrics   *metrics.Metrics
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithLogger sets a logger for gate decisions.
func WithLogger(l *zap.Logger) GateOption {
	return func(g *Gate) { g.logger = l }
}

// WithMetrics counts decisions by kind and reason.
func WithMetrics(m *metrics.Metrics) GateOption {
	return func(g *Gate) { g.metrics = m }
}

// NewGate creates a gate with the given threshold.
func NewGate(threshold float64, opts ...GateOption) *Gate {
	g := &Gate{threshold: threshold}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Threshold returns the configured threshold.
func (g *Gate) Threshold() float64 {
	return g.threshold
}

// Decide never returns an error. A score equal to the threshold is not enough;
// below it the generator is never called and the result carries Apology.
// Above it the generator is called once; an error or a response without
// candidates yields NotFound with empty text.
func (g *Gate) Decide(ctx context.Context, question string, match models.ScoredMatch, gen generation.Generator) models.AnswerResult {
	if !(match.Score > g.threshold) {
		g.log("below threshold", match, models.ReasonBelowThreshold)
		return g.done(models.AnswerResult{Kind: models.NotFound, Text: Apology, Reason: models.ReasonBelowThreshold})
	}

	resp, err := gen.Generate(ctx, Prompt(question, match.Passage.Text))
	if err != nil {
		g.metrics.GenerationFailed()
		if g.logger != nil {
			g.logger.Warn("generation failed", zap.Int("index", match.Index), zap.Error(err))
		}
		return g.done(models.AnswerResult{Kind: models.NotFound, Reason: models.ReasonGenerationFailed})
	}
	text, ok := resp.FirstText()
	if !ok {
		g.log("no candidates", match, models.ReasonNoCandidates)
		return g.done(models.AnswerResult{Kind: models.NotFound, Reason: models.ReasonNoCandidates})
	}
	g.log("answered", match, "")
	return g.done(models.AnswerResult{Kind: models.Answered, Text: text})
}

func (g *Gate) done(r models.AnswerResult) models.AnswerResult {
	g.metrics.ObserveAnswer(string(r.Kind), string(r.Reason))
	return r
}

func (g *Gate) log(msg string, match models.ScoredMatch, reason models.NotFoundReason) {
	if g.logger == nil {
		return
	}
	g.logger.Debug(msg,
		zap.Int("index", match.Index),
		zap.Float64("score", match.Score),
		zap.Float64("threshold", g.threshold),
		zap.String("reason", string(reason)))
}
