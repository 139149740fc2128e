package envelope

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Frame is a tabular structure rebuilt from a branch.
type Frame struct {
	Columns []string
	Rows    [][]any
}

// NewFrame checks every row against the column count.
func NewFrame(columns []string, rows [][]any) (*Frame, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: no columns", ErrMalformedEnvelope)
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, &ShapeError{Row: i, Got: len(row), Columns: len(columns)}
		}
	}
	return &Frame{Columns: columns, Rows: rows}, nil
}

// Frame rebuilds the branch as a Frame. key only labels errors.
func (b *Branch) Frame(key string) (*Frame, error) {
	f, err := NewFrame(b.Columns, b.Data)
	if se, ok := err.(*ShapeError); ok {
		se.Key = key
	}
	return f, err
}

// NumRows returns the number of data rows.
func (f *Frame) NumRows() int { return len(f.Rows) }

// NumColumns returns the number of columns.
func (f *Frame) NumColumns() int { return len(f.Columns) }

// Column returns the values of column i in row order.
func (f *Frame) Column(i int) []any {
	out := make([]any, len(f.Rows))
	for r, row := range f.Rows {
		out[r] = row[i]
	}
	return out
}

// Float converts a cell to float64 when it is numeric.
func Float(v any) (float64, bool) {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	}
	return 0, false
}

// Text renders a cell for display. Null becomes an empty string.
func Text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
