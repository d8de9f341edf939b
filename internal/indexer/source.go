package indexer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/kotae/internal/extract"
)

// Source reads a document into passages: extract segments, normalize, chunk.
type Source struct {
	extractor  *extract.Extractor
	chunker    *Chunker
	extensions []string
}

// NewSource creates a passage source. If extensions is non-empty, only files
// with one of those extensions are accepted.
func NewSource(extractor *extract.Extractor, chunker *Chunker, extensions []string) *Source {
	if extractor == nil {
		extractor = extract.NewExtractor()
	}
	if chunker == nil {
		chunker = NewChunker(0, 0)
	}
	return &Source{extractor: extractor, chunker: chunker, extensions: extensions}
}

// Passages returns the ordered passages of the regular file at path.
func (s *Source) Passages(path string) ([]string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	if !s.Accepts(absPath) {
		return nil, fmt.Errorf("extension %q not in allowed list", filepath.Ext(absPath))
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", absPath)
	}
	segments, err := s.extractor.Segments(absPath)
	if err != nil {
		return nil, fmt.Errorf("extract content: %w", err)
	}
	return s.chunker.Passages(segments), nil
}

// Accepts reports whether path has an allowed extension.
func (s *Source) Accepts(path string) bool {
	if len(s.extensions) == 0 {
		return true
	}
	return extensionAllowed(filepath.Ext(path), s.extensions)
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
