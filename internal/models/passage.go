// Package models defines the passage index, query, and answer types.
package models

import (
	"bytes"
	"encoding/json"
)

// Embedding is the stored vector of a passage. On disk it is an object with a
// "values" array; any other fields of that object are kept as-is so that an
// index written by another tool round-trips unchanged. Values are held as
// float64 so that vectors written as doubles keep their precision.
type Embedding struct {
	// Values is read-only once set; the encoded form is cached in rawValues.
	Values []float64

	// rawValues is the verbatim "values" JSON, re-emitted on save.
	rawValues json.RawMessage
	// fields holds the object's members other than a well-formed "values".
	fields map[string]json.RawMessage
	// malformed holds the verbatim JSON when the embedding is not an object.
	malformed json.RawMessage
}

// NewEmbedding wraps a vector returned by an embedder. The float32 values are
// encoded in their shortest float32 form.
func NewEmbedding(values []float32) Embedding {
	e := Embedding{Values: make([]float64, len(values))}
	for i, v := range values {
		e.Values[i] = float64(v)
	}
	if raw, err := json.Marshal(values); err == nil {
		e.rawValues = raw
	}
	return e
}

// Valid reports whether the embedding is a non-empty numeric vector.
func (e Embedding) Valid() bool {
	return e.malformed == nil && len(e.Values) > 0
}

// MarshalJSON writes the embedding object, restoring any fields it was read with.
func (e Embedding) MarshalJSON() ([]byte, error) {
	if e.malformed != nil {
		return e.malformed, nil
	}
	obj := make(map[string]json.RawMessage, len(e.fields)+1)
	for k, v := range e.fields {
		obj[k] = v
	}
	switch {
	case e.rawValues != nil:
		obj["values"] = e.rawValues
	case e.Values != nil:
		b, err := json.Marshal(e.Values)
		if err != nil {
			return nil, err
		}
		obj["values"] = b
	}
	return json.Marshal(obj)
}

// UnmarshalJSON never fails on a malformed vector: a "values" member that is not
// a numeric array leaves Values nil and Valid false.
func (e *Embedding) UnmarshalJSON(data []byte) error {
	*e = Embedding{}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil || obj == nil {
		e.malformed = append(json.RawMessage(nil), bytes.TrimSpace(data)...)
		return nil
	}
	if raw, ok := obj["values"]; ok {
		var vals []float64
		if err := json.Unmarshal(raw, &vals); err == nil && vals != nil {
			e.Values = vals
			e.rawValues = append(json.RawMessage(nil), bytes.TrimSpace(raw)...)
			delete(obj, "values")
		}
	}
	if len(obj) > 0 {
		e.fields = obj
	}
	return nil
}

// Passage is one unit of source text paired with its embedding.
type Passage struct {
	Text      string    `json:"text"`
	Embedding Embedding `json:"embedding"`
}

// EmbeddingIndex is the ordered collection of passages built from one source.
// Position i corresponds to the i-th input passage.
type EmbeddingIndex []Passage

// Dimensions returns the length of the first well-formed embedding, or 0.
func (idx EmbeddingIndex) Dimensions() int {
	for _, p := range idx {
		if p.Embedding.Valid() {
			return len(p.Embedding.Values)
		}
	}
	return 0
}

// Texts returns the passage texts in index order.
func (idx EmbeddingIndex) Texts() []string {
	out := make([]string, len(idx))
	for i, p := range idx {
		out[i] = p.Text
	}
	return out
}
