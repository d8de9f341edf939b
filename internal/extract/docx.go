package extract

import (
	"archive/zip"
	"fmt"
	"regexp"
	"strings"
)

const (
	docxDefaultPart     = "word/document.xml"
	contentTypesPath    = "[Content_Types].xml"
	docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
)

// wtTag matches <w:t>text</w:t> with any attributes.
var wtTag = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)

// Override elements may list PartName and ContentType in either order.
var (
	partNameFirst = regexp.MustCompile(`<Override[^>]+PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"`)
	partNameLast  = regexp.MustCompile(`<Override[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"[^>]+PartName="([^"]+)"`)
)

// docxMainPart finds the main document part from [Content_Types].xml, falling
// back to word/document.xml.
func docxMainPart(zr *zip.Reader) string {
	data, err := readEntry(zr, contentTypesPath)
	if err != nil || data == nil {
		return docxDefaultPart
	}
	for _, re := range []*regexp.Regexp{partNameFirst, partNameLast} {
		if m := re.FindSubmatch(data); len(m) > 1 {
			return strings.TrimPrefix(string(m[1]), "/")
		}
	}
	return docxDefaultPart
}

// extractDOCX joins every <w:t> run of the main document part. Paragraph tags
// carry attributes in real documents, so runs are matched directly.
func extractDOCX(content []byte) (string, error) {
	zr, err := openZip("DOCX", content)
	if err != nil {
		return "", err
	}
	part := docxMainPart(zr)
	data, err := readEntry(zr, part)
	if err != nil {
		return "", fmt.Errorf("extract DOCX: %w", err)
	}
	if data == nil {
		return "", fmt.Errorf("extract DOCX: %s not found", part)
	}
	return joinMatches(string(data), wtTag), nil
}
