package extract

import (
	"bytes"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// extractPlain decodes text files. A leading BOM is dropped, CRLF becomes LF,
// and invalid UTF-8 sequences become U+FFFD.
func extractPlain(content []byte) (string, error) {
	content = bytes.TrimPrefix(content, utf8BOM)
	text := strings.ToValidUTF8(string(content), "\ufffd")
	return strings.ReplaceAll(text, "\r\n", "\n"), nil
}
