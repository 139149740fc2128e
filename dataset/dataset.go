package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Kind identifies the loader used for an upload.
type Kind string

const (
	KindCSV   Kind = "csv"
	KindExcel Kind = "xlsx"
)

var (
	ErrEmptyFile       = errors.New("file contains no data")
	ErrUnsupportedKind = errors.New("unsupported file type")
	ErrRaggedRow       = errors.New("row has more fields than the header")
	ErrNotText         = errors.New("file is not delimited text")
	ErrSheetNotFound   = errors.New("sheet not found")
)

// ParseKind maps the user-declared upload type ("CSV" or "EXCEL") to a Kind.
func ParseKind(fileType string) (Kind, error) {
	switch strings.ToUpper(strings.TrimSpace(fileType)) {
	case "CSV":
		return KindCSV, nil
	case "EXCEL", "XLSX":
		return KindExcel, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedKind, fileType)
	}
}

// Extension returns the file extension accepted for the kind.
func (k Kind) Extension() string {
	if k == KindExcel {
		return ".xlsx"
	}
	return ".csv"
}

// Dataset is an in-memory table: named columns and rows of raw cell text.
// Every row has exactly len(Columns) cells.
type Dataset struct {
	Name    string
	Kind    Kind
	Sheet   string
	Columns []string
	Rows    [][]string
}

// NumRows returns the number of data rows.
func (d *Dataset) NumRows() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// NumColumns returns the number of columns.
func (d *Dataset) NumColumns() int {
	if d == nil {
		return 0
	}
	return len(d.Columns)
}

// Head returns a dataset sharing the first n rows.
func (d *Dataset) Head(n int) *Dataset {
	if n < 0 || n > len(d.Rows) {
		n = len(d.Rows)
	}
	return &Dataset{
		Name:    d.Name,
		Kind:    d.Kind,
		Sheet:   d.Sheet,
		Columns: d.Columns,
		Rows:    d.Rows[:n],
	}
}

// WriteCSV writes the header and rows as RFC 4180 CSV.
func (d *Dataset) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(d.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(d.Rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}

// ColumnType is a coarse dtype inferred from the cell text of one column.
type ColumnType string

const (
	TypeInt    ColumnType = "int"
	TypeFloat  ColumnType = "float"
	TypeBool   ColumnType = "bool"
	TypeString ColumnType = "string"
	TypeEmpty  ColumnType = "empty"
)

// InferType classifies column col. Blank cells are ignored; a column is
// numeric only when every non-blank cell parses.
func (d *Dataset) InferType(col int) ColumnType {
	seen := 0
	isInt, isFloat, isBool := true, true, true
	for _, row := range d.Rows {
		v := strings.TrimSpace(row[col])
		if v == "" {
			continue
		}
		seen++
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			isInt = false
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			isFloat = false
		}
		if _, err := strconv.ParseBool(v); err != nil {
			isBool = false
		}
	}
	switch {
	case seen == 0:
		return TypeEmpty
	case isInt:
		return TypeInt
	case isFloat:
		return TypeFloat
	case isBool:
		return TypeBool
	default:
		return TypeString
	}
}

// Summary describes the dataset for a model prompt: shape, column types and
// the first sampleRows rows as a markdown table.
func (d *Dataset) Summary(sampleRows int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Shape: %d rows x %d columns\n", d.NumRows(), d.NumColumns())
	b.WriteString("Columns:\n")
	for i, c := range d.Columns {
		fmt.Fprintf(&b, "- %s (%s)\n", c, d.InferType(i))
	}
	head := d.Head(sampleRows)
	if head.NumRows() == 0 {
		return b.String()
	}
	fmt.Fprintf(&b, "\nFirst %d rows:\n", head.NumRows())
	b.WriteString("| " + strings.Join(escapeCells(d.Columns), " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(d.Columns)) + "\n")
	for _, row := range head.Rows {
		b.WriteString("| " + strings.Join(escapeCells(row), " | ") + " |\n")
	}
	return b.String()
}

func escapeCells(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		c = strings.ReplaceAll(c, "|", `\|`)
		out[i] = strings.ReplaceAll(c, "\n", " ")
	}
	return out
}

// normalizeHeader trims header cells, names blanks Column_<n> and suffixes
// duplicates with .1, .2 ...
func normalizeHeader(raw []string) []string {
	headers := make([]string, len(raw))
	counts := make(map[string]int, len(raw))
	for i, h := range raw {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Column_%d", i+1)
		}
		if n := counts[h]; n > 0 {
			counts[h] = n + 1
			h = fmt.Sprintf("%s.%d", h, n)
		} else {
			counts[h] = 1
		}
		headers[i] = h
	}
	return headers
}

// padRow returns row extended with empty cells to width.
func padRow(row []string, width int) []string {
	if len(row) >= width {
		return row
	}
	out := make([]string, width)
	copy(out, row)
	return out
}
