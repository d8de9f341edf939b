// Package indexer turns source text into passages and builds embedding indexes.
package indexer

import (
	"strings"
	"unicode"
)

// Chunker splits text into overlapping word-based windows.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker with the given size and overlap (in words).
// A size of 0 disables splitting.
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// Chunk splits text into windows of chunkSize words, each starting
// chunkSize-chunkOverlap words after the previous one.
func (c *Chunker) Chunk(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if c.chunkSize <= 0 || len(words) <= c.chunkSize {
		return []string{strings.Join(words, " ")}
	}
	step := c.chunkSize - c.chunkOverlap
	if step <= 0 {
		step = 1
	}
	var chunks []string
	for i := 0; i < len(words); i += step {
		end := i + c.chunkSize
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))
		if end >= len(words) {
			break
		}
	}
	return chunks
}

// Passages normalizes each segment, drops blank ones, and chunks the rest,
// keeping segment order.
func (c *Chunker) Passages(segments []string) []string {
	var out []string
	for _, seg := range segments {
		seg = normalize(seg)
		if seg == "" {
			continue
		}
		out = append(out, c.Chunk(seg)...)
	}
	return out
}

// normalize collapses whitespace runs to one space and drops control and
// replacement characters left behind by extraction.
func normalize(text string) string {
	text = strings.Map(func(r rune) rune {
		if r == unicode.ReplacementChar || (unicode.IsControl(r) && !unicode.IsSpace(r)) {
			return -1
		}
		return r
	}, text)
	return strings.Join(strings.Fields(text), " ")
}
