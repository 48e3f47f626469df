package extractor

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// csvHeader is the fixed, case-sensitive header contract for CSV uploads.
var csvHeader = []string{"date", "title", "amount", "category", "transaction_type", "account"}

// utf8BOM is stripped if present; spreadsheet exports commonly prepend it.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ExtractCSV reads a statement CSV and returns one RawLine per data row
// with the columns already split. The header row must match the documented
// contract exactly; anything else is an unrecoverable upload error.
func ExtractCSV(data []byte) (*Document, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1 // rows are padded/truncated below

	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty CSV file")
	}
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}
	if err := checkHeader(header); err != nil {
		return nil, err
	}

	doc := &Document{}
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A malformed row is a per-row problem, not a failed upload.
			doc.warnf("skipped malformed CSV row: %v", err)
			continue
		}

		fields := make([]string, len(csvHeader))
		for i := range fields {
			if i < len(record) {
				fields[i] = strings.TrimSpace(record[i])
			}
		}
		doc.Lines = append(doc.Lines, RawLine{
			Page:   1,
			Index:  len(doc.Lines),
			Text:   strings.Join(fields, ","),
			Fields: fields,
		})
	}
	return doc, nil
}

func checkHeader(header []string) error {
	if len(header) < len(csvHeader) {
		return fmt.Errorf("CSV header must be %q", strings.Join(csvHeader, ","))
	}
	for i, want := range csvHeader {
		if strings.TrimSpace(header[i]) != want {
			return fmt.Errorf("CSV header column %d must be %q, got %q", i+1, want, strings.TrimSpace(header[i]))
		}
	}
	return nil
}
