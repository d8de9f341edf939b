package extract

import (
	"fmt"
	"regexp"
)

// odfContentPath is the main content part of an OpenDocument package.
const odfContentPath = "content.xml"

var (
	odfTextP    = regexp.MustCompile(`<text:p[^>]*>([^<]*)</text:p>`)
	odfTextSpan = regexp.MustCompile(`<text:span[^>]*>([^<]*)</text:span>`)
	odfTextH    = regexp.MustCompile(`<text:h[^>]*>([^<]*)</text:h>`)

	odpPage  = regexp.MustCompile(`(?s)<draw:page[ >].*?</draw:page>`)
	odsTable = regexp.MustCompile(`(?s)<table:table[ >].*?</table:table>`)
)

func odfContent(format string, content []byte) (string, error) {
	zr, err := openZip(format, content)
	if err != nil {
		return "", err
	}
	data, err := readEntry(zr, odfContentPath)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", format, err)
	}
	if data == nil {
		return "", fmt.Errorf("extract %s: %s not found", format, odfContentPath)
	}
	return string(data), nil
}

// splitParts returns one joined text per block matched by part. A document
// without any such block is treated as a single part.
func splitParts(s string, part *regexp.Regexp, patterns ...*regexp.Regexp) []string {
	blocks := part.FindAllString(s, -1)
	if len(blocks) == 0 {
		blocks = []string{s}
	}
	out := make([]string, len(blocks))
	for i, b := range blocks {
		out[i] = joinMatches(b, patterns...)
	}
	return out
}

// extractODP returns one segment per draw:page. Within a page, text:p text
// comes first, then text:span, then text:h.
func extractODP(content []byte) ([]string, error) {
	s, err := odfContent("ODP", content)
	if err != nil {
		return nil, err
	}
	return splitParts(s, odpPage, odfTextP, odfTextSpan, odfTextH), nil
}

// extractODS returns one segment per table (sheet).
func extractODS(content []byte) ([]string, error) {
	s, err := odfContent("ODS", content)
	if err != nil {
		return nil, err
	}
	return splitParts(s, odsTable, odfTextP, odfTextSpan), nil
}

// extractODT joins the paragraphs and headings of a text document.
func extractODT(content []byte) (string, error) {
	s, err := odfContent("ODT", content)
	if err != nil {
		return "", err
	}
	return joinMatches(s, odfTextH, odfTextP, odfTextSpan), nil
}
