// Package extractor turns uploaded statement files into ordered raw lines.
// PDFs go through native text extraction with an OCR fallback for scanned
// pages; CSVs are split into already-delimited rows. The extractor never
// touches storage.
package extractor

import (
	"fmt"
	"strings"
)

// RawLine is one line of statement text, ordered by page then index.
// For CSV uploads Fields carries the delimited columns and Text is the
// joined row; downstream code branches on Fields being non-nil.
type RawLine struct {
	Page   int
	Index  int
	Text   string
	Fields []string
}

// Document is the result of extracting one uploaded file. Warnings are
// surfaced on the review screen; a page that produced no lines is a
// warning, not an error.
type Document struct {
	Lines    []RawLine
	Warnings []string
}

func (d *Document) warnf(format string, args ...any) {
	d.Warnings = append(d.Warnings, fmt.Sprintf(format, args...))
}

// appendPage splits one page's text into lines and appends them with
// sequential global indices.
func (d *Document) appendPage(page int, text string) {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		d.Lines = append(d.Lines, RawLine{
			Page:  page,
			Index: len(d.Lines),
			Text:  line,
		})
	}
}
