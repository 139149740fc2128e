package dataset

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Workbook is an opened spreadsheet awaiting sheet selection.
type Workbook struct {
	name string
	file *excelize.File
}

// OpenWorkbook reads an .xlsx stream. The caller must Close it.
func OpenWorkbook(r io.Reader, name string) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	return &Workbook{name: name, file: f}, nil
}

// Sheets lists sheet names in workbook order.
func (w *Workbook) Sheets() []string {
	return w.file.GetSheetList()
}

// Load reads one sheet. The first row is the header; short rows are padded
// and cells beyond the header get generated Column_<n> names.
func (w *Workbook) Load(sheet string) (*Dataset, error) {
	if !slices.Contains(w.Sheets(), sheet) {
		return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, sheet)
	}
	rows, err := w.file.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	rows = trimBlankRows(rows)
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q: %w", sheet, ErrEmptyFile)
	}

	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}
	headers := normalizeHeader(padRow(rows[0], width))
	data := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		data = append(data, padRow(row, width))
	}

	return &Dataset{
		Name:    w.name,
		Kind:    KindExcel,
		Sheet:   sheet,
		Columns: headers,
		Rows:    data,
	}, nil
}

// Close releases the underlying workbook.
func (w *Workbook) Close() error {
	if w == nil || w.file == nil {
		return nil
	}
	return w.file.Close()
}

// LoadXLSX opens r and loads sheet, or the first sheet when sheet is empty.
func LoadXLSX(r io.Reader, name, sheet string) (*Dataset, error) {
	wb, err := OpenWorkbook(r, name)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	if sheet == "" {
		sheets := wb.Sheets()
		if len(sheets) == 0 {
			return nil, ErrEmptyFile
		}
		sheet = sheets[0]
	}
	return wb.Load(sheet)
}

func trimBlankRows(rows [][]string) [][]string {
	for len(rows) > 0 && isBlankRow(rows[len(rows)-1]) {
		rows = rows[:len(rows)-1]
	}
	for len(rows) > 0 && isBlankRow(rows[0]) {
		rows = rows[1:]
	}
	return rows
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
