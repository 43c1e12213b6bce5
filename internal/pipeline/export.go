package pipeline

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"chemdesk/internal"
)

func ExportRowsToXLSX(rows []internal.ResultExportRow, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []string{
		"input_line_no", "source", "raw_line", "parsed_name", "parsed_amount", "parsed_unit",
		"status", "confidence", "reason",
		"normed_form", "canonical", "formula", "cas", "molecular_weight",
		"candidate2_name", "candidate2_score",
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, row := range rows {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, row.InputLineNo)
		set(2, row.Source)
		set(3, row.RawLine)
		set(4, derefString(row.ParsedName))
		set(5, derefFloat(row.ParsedAmount))
		set(6, derefString(row.ParsedUnit))
		set(7, row.Status)
		set(8, row.Confidence)
		set(9, row.Reason)
		set(10, row.NormalizedName)
		set(11, derefString(row.Canonical))
		set(12, derefString(row.Formula))
		set(13, derefString(row.CAS))
		set(14, derefFloat(row.MolecularWeight))
		set(15, derefString(row.Candidate2Name))
		set(16, derefFloat(row.Candidate2Score))
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

// ExportRankingToXLSX writes the enriched ranking file: one row per compound,
// canonical name and score, in rank order.
func ExportRankingToXLSX(ranked []internal.RankedCompound, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []string{"rank", "normed_form", "molecular_weight", "score"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, rc := range ranked {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}
		set(1, i+1)
		set(2, rc.Canonical)
		set(3, derefFloat(rc.MolecularWeight))
		set(4, rc.Score)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func derefFloat(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}
