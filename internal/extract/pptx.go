package extract

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// pptxSlide matches slide parts and captures the slide number.
var pptxSlide = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// atTag matches <a:t>text</a:t> with any attributes.
var atTag = regexp.MustCompile(`<a:t[^>]*>([^<]*)</a:t>`)

// extractPPTX returns one segment per slide, ordered by slide number.
func extractPPTX(content []byte) ([]string, error) {
	zr, err := openZip("PPTX", content)
	if err != nil {
		return nil, err
	}
	type slide struct {
		n    int
		text string
	}
	var slides []slide
	for _, f := range zr.File {
		m := pptxSlide.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		data, err := readEntry(zr, f.Name)
		if err != nil {
			return nil, fmt.Errorf("extract PPTX: %w", err)
		}
		slides = append(slides, slide{n: n, text: joinMatches(string(data), atTag)})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].n < slides[j].n })
	out := make([]string, len(slides))
	for i, s := range slides {
		out[i] = strings.TrimSpace(s.text)
	}
	return out, nil
}
