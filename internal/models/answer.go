package models

// AnswerKind tells whether an answer was produced.
type AnswerKind string

const (
	Answered AnswerKind = "answered"
	NotFound AnswerKind = "not_found"
)

// NotFoundReason explains a NotFound result.
type NotFoundReason string

const (
	ReasonBelowThreshold   NotFoundReason = "below_threshold"
	ReasonNoCandidates     NotFoundReason = "no_candidates"
	ReasonGenerationFailed NotFoundReason = "generation_failed"
)

// AnswerResult is the terminal value returned to the caller. A NotFound result
// below the threshold carries the apology text; one produced after the
// generator was invoked carries empty text.
type AnswerResult struct {
	Kind   AnswerKind     `json:"kind"`
	Text   string         `json:"text"`
	Reason NotFoundReason `json:"reason,omitempty"`
}

// Found reports whether the result holds generated text.
func (r AnswerResult) Found() bool {
	return r.Kind == Answered
}

// Answer is a result together with the match that produced it.
type Answer struct {
	Question  string       `json:"question"`
	Key       string       `json:"key,omitempty"`
	Result    AnswerResult `json:"result"`
	Match     ScoredMatch  `json:"match"`
	QueryTime int64        `json:"query_time_ms"`
}
