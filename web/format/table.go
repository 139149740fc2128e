package format

import "sheet-agent/envelope"

// TableView is a frame or dataset flattened to display strings.
type TableView struct {
	Columns []string
	Rows    [][]string
}

// TableFromFrame converts every cell with envelope.Text.
func TableFromFrame(f *envelope.Frame) *TableView {
	rows := make([][]string, len(f.Rows))
	for i, row := range f.Rows {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = envelope.Text(v)
		}
		rows[i] = cells
	}
	return &TableView{Columns: f.Columns, Rows: rows}
}

// TableFromStrings wraps already-textual rows, such as a dataset preview.
func TableFromStrings(columns []string, rows [][]string) *TableView {
	return &TableView{Columns: columns, Rows: rows}
}
