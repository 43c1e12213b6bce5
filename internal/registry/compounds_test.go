package registry

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	path := filepath.Join(t.TempDir(), "compound_data.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestImportCompoundsXLSX(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"normed_form", "molecular_weight", "formula", "cas"},
		{"Adenosine", 267.24, "C10H13N5O4", "58-61-7"},
		{"Bivalirudin", 2180.29, "", ""},
	})

	compounds, err := ImportCompoundsXLSX(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(compounds) != 2 {
		t.Fatalf("len=%d", len(compounds))
	}

	first := compounds[0]
	if first.Canonical != "Adenosine" {
		t.Fatalf("canonical=%q", first.Canonical)
	}
	if first.MolecularWeight == nil || *first.MolecularWeight != 267.24 {
		t.Fatalf("molecular weight: %v", first.MolecularWeight)
	}
	if first.CAS == nil || *first.CAS != "58-61-7" {
		t.Fatalf("cas: %v", first.CAS)
	}

	second := compounds[1]
	if second.Formula != nil || second.CAS != nil {
		t.Fatalf("empty cells must stay nil: %+v", second)
	}
}

func TestImportCompoundsXLSXNoNameColumn(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"weight", "stuff"},
		{1.0, "x"},
	})
	if _, err := ImportCompoundsXLSX(path); err == nil {
		t.Fatal("expected error")
	}
}
