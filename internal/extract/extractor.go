// Package extract reads source documents into ordered text segments. Paged
// formats yield one segment per page, slide, or sheet; flowing formats yield one.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Extractor extracts ordered text segments from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Segments reads the file at path and returns its text segments in document order.
func (e *Extractor) Segments(path string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return e.SegmentsBytes(content, strings.ToLower(filepath.Ext(path)))
}

// SegmentsBytes extracts segments from content based on ext, which includes the
// leading dot (e.g. ".pdf"). Unknown extensions are read as plain text.
func (e *Extractor) SegmentsBytes(content []byte, ext string) ([]string, error) {
	switch ext {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return single(extractDOCX(content))
	case ".odt":
		return single(extractODT(content))
	case ".xlsx":
		return extractExcel(content)
	case ".pptx":
		return extractPPTX(content)
	case ".odp":
		return extractODP(content)
	case ".ods":
		return extractODS(content)
	default:
		return single(extractPlain(content))
	}
}

func single(s string, err error) ([]string, error) {
	if err != nil {
		return nil, err
	}
	return []string{s}, nil
}
