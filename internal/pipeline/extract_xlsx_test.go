package pipeline

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
)

func mkXLSX(rows [][]any) []byte {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	buf := bytes.NewBuffer(nil)
	_, _ = f.WriteTo(buf)
	return buf.Bytes()
}

func TestParseXLSX(t *testing.T) {
	blob := mkXLSX([][]any{
		{"Compound", "Amount", "Unit"},
		{"Adenosine", 250, "mg"},
		{"Diflucan", 2, "g"},
	})
	items, err := parseXLSX(blob)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("len=%d", len(items))
	}
	if items[0].Name == nil || *items[0].Name != "Adenosine" {
		t.Fatalf("name=%v", items[0].Name)
	}
	if items[0].Amount == nil || *items[0].Amount != 250 {
		t.Fatal("amount bad")
	}
	if items[1].Unit == nil || *items[1].Unit != "g" {
		t.Fatalf("unit=%v", items[1].Unit)
	}
}

func TestParseXLSXWithoutHeader(t *testing.T) {
	blob := mkXLSX([][]any{
		{"Adenocard", 5, "mg"},
		{"BG8967", 1, "g"},
	})
	items, err := parseXLSX(blob)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("len=%d", len(items))
	}
}
