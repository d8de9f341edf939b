package storage

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/hyperjump/kotae/internal/models"
)

// Encode serializes an index as a JSON array of {text, embedding} objects.
// A nil index encodes as an empty array.
func Encode(index models.EmbeddingIndex) ([]byte, error) {
	if index == nil {
		index = models.EmbeddingIndex{}
	}
	data, err := json.Marshal(index)
	if err != nil {
		return nil, fmt.Errorf("failed to encode index: %w", err)
	}
	return data, nil
}

// Decode parses stored content. Content that is not JSON is ErrIndexLoadFailure;
// JSON that is not an array of passage objects (including null) is ErrIndexCorrupt.
// Malformed embeddings inside well-formed passages are kept and scored later.
func Decode(data []byte) (models.EmbeddingIndex, error) {
	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIndexLoadFailure, err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, fmt.Errorf("%w: expected array, got %s", ErrIndexCorrupt, kindOf(raw))
	}
	var index models.EmbeddingIndex
	if err := json.Unmarshal(raw, &index); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIndexCorrupt, err)
	}
	if index == nil {
		index = models.EmbeddingIndex{}
	}
	return index, nil
}

func kindOf(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "nothing"
	}
	switch raw[0] {
	case '{':
		return "object"
	case '"':
		return "string"
	case 'n':
		return "null"
	case 't', 'f':
		return "boolean"
	default:
		return "number"
	}
}
