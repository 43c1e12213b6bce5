package registry

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"chemdesk/internal"
	"chemdesk/internal/util"
)

// ImportCompoundsXLSX reads the compound property workbook. The first row of
// each sheet is treated as a header; columns are located by probe words so the
// sheet layout can vary between suppliers.
func ImportCompoundsXLSX(path string) ([]internal.CompoundRecord, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := []internal.CompoundRecord{}
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		if len(rows) < 2 {
			continue
		}

		headers := make([]string, 0, len(rows[0]))
		for _, h := range rows[0] {
			headers = append(headers, strings.ToLower(strings.TrimSpace(h)))
		}

		nameIdx := findHeaderIndex(headers, []string{"normed", "canonical", "compound", "name"})
		mwIdx := findHeaderIndex(headers, []string{"molecular_weight", "molecular weight", "mol. weight", "mw"})
		formulaIdx := findHeaderIndex(headers, []string{"formula"})
		casIdx := findHeaderIndex(headers, []string{"cas"})
		if nameIdx < 0 {
			return nil, fmt.Errorf("sheet %s: no compound name column", sheet)
		}

		for i, row := range rows[1:] {
			name := cellAt(row, nameIdx)
			if name == "" {
				continue
			}

			record := internal.CompoundRecord{Canonical: name}
			if mw := cellAt(row, mwIdx); mw != "" {
				if parsed, err := strconv.ParseFloat(strings.ReplaceAll(mw, ",", "."), 64); err == nil {
					record.MolecularWeight = util.FloatPtr(parsed)
				}
			}
			if formula := cellAt(row, formulaIdx); formula != "" {
				record.Formula = util.StringPtr(formula)
			}
			if cas := cellAt(row, casIdx); cas != "" {
				record.CAS = util.StringPtr(cas)
			}

			raw := map[string]any{"sheet": sheet, "rowNumber": i + 2, "cells": row}
			blob, _ := json.Marshal(raw)
			record.RawJSON = string(blob)
			out = append(out, record)
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("no compound rows in %s", path)
	}
	return out, nil
}

func findHeaderIndex(headers []string, probes []string) int {
	for _, probe := range probes {
		for i, h := range headers {
			if strings.Contains(h, probe) {
				return i
			}
		}
	}
	return -1
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
