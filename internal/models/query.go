package models

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
)

// ErrEmptyQuery is returned for a blank question.
var ErrEmptyQuery = errors.New("query cannot be empty")

// Query is a question asked against an index. It lives for one ranking call.
type Query struct {
	Text string `json:"text"`
}

// Validate returns an error if the query text is blank.
func (q Query) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return ErrEmptyQuery
	}
	return nil
}

// ScoredMatch is the best passage for a query and its raw inner-product score.
type ScoredMatch struct {
	Index   int     `json:"index"`
	Passage Passage `json:"passage"`
	Score   float64 `json:"score"`
}

// MarshalJSON encodes a non-finite score as null; encoding/json rejects ±Inf.
func (m ScoredMatch) MarshalJSON() ([]byte, error) {
	o := scoredMatchJSON{Index: m.Index, Text: m.Passage.Text}
	if !math.IsInf(m.Score, 0) && !math.IsNaN(m.Score) {
		s := m.Score
		o.Score = &s
	}
	return json.Marshal(o)
}

// UnmarshalJSON reads the MarshalJSON form; a null score becomes -Inf.
func (m *ScoredMatch) UnmarshalJSON(data []byte) error {
	var o scoredMatchJSON
	if err := json.Unmarshal(data, &o); err != nil {
		return err
	}
	m.Index = o.Index
	m.Passage = Passage{Text: o.Text}
	m.Score = math.Inf(-1)
	if o.Score != nil {
		m.Score = *o.Score
	}
	return nil
}

type scoredMatchJSON struct {
	Index int      `json:"index"`
	Text  string   `json:"text"`
	Score *float64 `json:"score"`
}
