package dataset

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, sheets map[string][][]interface{}, order []string) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, name := range order {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				t.Fatalf("rename sheet: %v", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			t.Fatalf("new sheet: %v", err)
		}
		for r, row := range sheets[name] {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			row := row
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				t.Fatalf("set row: %v", err)
			}
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf
}

func TestWorkbookSheetsAndLoad(t *testing.T) {
	buf := buildWorkbook(t, map[string][][]interface{}{
		"Q1": {{"region", "revenue"}, {"north", 100}, {"south", 80}},
		"Q2": {{"region", "revenue", ""}, {"north", 120, "extra"}},
	}, []string{"Q1", "Q2"})

	wb, err := OpenWorkbook(buf, "report.xlsx")
	if err != nil {
		t.Fatalf("OpenWorkbook: %v", err)
	}
	defer wb.Close()

	if got := strings.Join(wb.Sheets(), ","); got != "Q1,Q2" {
		t.Fatalf("Sheets = %s, want Q1,Q2", got)
	}

	q1, err := wb.Load("Q1")
	if err != nil {
		t.Fatalf("Load Q1: %v", err)
	}
	if q1.Sheet != "Q1" || q1.Kind != KindExcel || q1.NumRows() != 2 {
		t.Errorf("unexpected Q1 dataset: %+v", q1)
	}
	if q1.Rows[1][0] != "south" || q1.Rows[1][1] != "80" {
		t.Errorf("Q1 row 2 = %q", q1.Rows[1])
	}

	q2, err := wb.Load("Q2")
	if err != nil {
		t.Fatalf("Load Q2: %v", err)
	}
	if got := strings.Join(q2.Columns, ","); got != "region,revenue,Column_3" {
		t.Errorf("Q2 columns = %s", got)
	}

	if _, err := wb.Load("Q3"); !errors.Is(err, ErrSheetNotFound) {
		t.Errorf("Load(Q3) err = %v, want ErrSheetNotFound", err)
	}
}

func TestLoadXLSXDefaultsToFirstSheet(t *testing.T) {
	buf := buildWorkbook(t, map[string][][]interface{}{
		"Data": {{"a"}, {1}, {2}},
	}, []string{"Data"})

	ds, err := LoadXLSX(buf, "one.xlsx", "")
	if err != nil {
		t.Fatalf("LoadXLSX: %v", err)
	}
	if ds.Sheet != "Data" || ds.NumRows() != 2 {
		t.Errorf("unexpected dataset: sheet=%s rows=%d", ds.Sheet, ds.NumRows())
	}
}

func TestLoadXLSXEmptySheet(t *testing.T) {
	buf := buildWorkbook(t, map[string][][]interface{}{"Empty": nil}, []string{"Empty"})
	if _, err := LoadXLSX(buf, "empty.xlsx", "Empty"); !errors.Is(err, ErrEmptyFile) {
		t.Errorf("err = %v, want ErrEmptyFile", err)
	}
}

func TestOpenWorkbookRejectsText(t *testing.T) {
	if _, err := OpenWorkbook(strings.NewReader("a,b\n1,2\n"), "fake.xlsx"); err == nil {
		t.Fatal("expected error opening CSV text as a workbook")
	}
}
