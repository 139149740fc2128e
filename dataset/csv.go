package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// LoadCSV reads delimited text with a header row. Rows shorter than the
// header are padded; longer rows fail with ErrRaggedRow. Binary or non
// UTF-8 content fails with ErrNotText.
func LoadCSV(r io.Reader, name string) (*Dataset, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrEmptyFile
	}
	if bytes.IndexByte(raw, 0) != -1 || !utf8.Valid(raw) {
		return nil, ErrNotText
	}

	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}

	headers := normalizeHeader(records[0])
	rows := make([][]string, 0, len(records)-1)
	for i, rec := range records[1:] {
		if len(rec) > len(headers) {
			// line numbers are 1-based and the header is line 1
			return nil, fmt.Errorf("%w: line %d has %d fields, header has %d", ErrRaggedRow, i+2, len(rec), len(headers))
		}
		rows = append(rows, padRow(rec, len(headers)))
	}

	return &Dataset{
		Name:    name,
		Kind:    KindCSV,
		Columns: headers,
		Rows:    rows,
	}, nil
}

// IsParseError reports whether err came from malformed CSV syntax.
func IsParseError(err error) bool {
	var pe *csv.ParseError
	return errors.As(err, &pe)
}
