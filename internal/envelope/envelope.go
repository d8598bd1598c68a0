// Package envelope bounds the size of text returned to callers. Oversized
// report output is cut, flagged, and optionally backed by an on-disk
// artifact that can be read back in pages.
package envelope

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultMaxChars caps inline response content. Callers needing more use the
// full-report artifact path.
const DefaultMaxChars = 20000

// Envelope wraps a textual result with truncation metadata.
type Envelope struct {
	Content       string `json:"content"`
	Truncated     bool   `json:"truncated"`
	TotalChars    int    `json:"total_chars"`
	TotalLines    int    `json:"total_lines"`
	ReturnedChars int    `json:"returned_chars,omitempty"`
	ReturnedLines int    `json:"returned_lines,omitempty"`
	Message       string `json:"truncation_message,omitempty"`
}

// Wrap bounds content to maxChars. The cut is a plain character cut, not
// line-boundary aware; callers that need exact sections use the paged-read
// path instead. A cut landing inside a multi-byte character backs off to
// the preceding character boundary, so the content stays valid UTF-8 and
// never exceeds maxChars bytes. maxChars <= 0 uses DefaultMaxChars.
func Wrap(content string, maxChars int) Envelope {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	totalChars := len(content)
	totalLines := strings.Count(content, "\n") + 1

	if totalChars <= maxChars {
		return Envelope{
			Content:    content,
			TotalChars: totalChars,
			TotalLines: totalLines,
		}
	}

	cutLen := maxChars
	for cutLen > 0 && !utf8.RuneStart(content[cutLen]) {
		cutLen--
	}
	cut := content[:cutLen]
	return Envelope{
		Content:       cut,
		Truncated:     true,
		TotalChars:    totalChars,
		TotalLines:    totalLines,
		ReturnedChars: len(cut),
		ReturnedLines: strings.Count(cut, "\n") + 1,
		Message: fmt.Sprintf("Output truncated (%d chars -> %d chars). Use generate_full_report for complete output.",
			totalChars, len(cut)),
	}
}
