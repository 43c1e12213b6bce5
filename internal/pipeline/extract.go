package pipeline

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jhillyerd/enmime"
	pdf "github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"chemdesk/internal"
	"chemdesk/internal/util"
)

var ignorePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^--+$`),
	regexp.MustCompile(`(?i)^thank`),
	regexp.MustCompile(`(?i)^(best|kind)\s+regards`),
	regexp.MustCompile(`(?i)^sincerely`),
	regexp.MustCompile(`(?i)^(tel|phone)[:\s]`),
	regexp.MustCompile(`(?i)^e-?mail[:\s]`),
	regexp.MustCompile(`(?i)^http`),
	regexp.MustCompile(`(?i)^dear\s`),
}

var (
	reLetters   = regexp.MustCompile(`[A-Za-z]`)
	reUnitWords = regexp.MustCompile(`(?i)\b(mg|g|kg|ug|ml|l|mol|mmol|pcs|pc|vials?)\b\.?`)
	reSeps      = regexp.MustCompile(`[;|]+`)
	reSpacesRun = regexp.MustCompile(`\s+`)
)

// ExtractItemsFromMailRaw pulls compound request lines out of a raw RFC822
// message: plain-text body lines, HTML tables, and xlsx/pdf attachments.
func ExtractItemsFromMailRaw(raw []byte) ([]internal.ExtractionItem, string, string, []string, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, "", "", nil, err
	}

	items := make([]internal.ExtractionItem, 0)
	if env.Text != "" {
		items = append(items, parseTextLines(env.Text)...)
	}
	if env.HTML != "" {
		items = append(items, parseHTMLTable(env.HTML)...)
	}

	attachmentNames := make([]string, 0, len(env.Attachments))
	for _, att := range env.Attachments {
		filename := strings.TrimSpace(att.FileName)
		if filename == "" {
			filename = "attachment"
		}
		attachmentNames = append(attachmentNames, filename)
		lower := strings.ToLower(filename)

		if strings.HasSuffix(lower, ".xlsx") || strings.HasSuffix(lower, ".xls") {
			extra, err := parseXLSX(att.Content)
			if err == nil {
				for i := range extra {
					if extra[i].Meta == nil {
						extra[i].Meta = map[string]any{}
					}
					extra[i].Meta["attachment"] = filename
				}
				items = append(items, extra...)
			}
		}
		if strings.HasSuffix(lower, ".pdf") {
			extra, err := parsePDF(att.Content)
			if err == nil {
				for i := range extra {
					if extra[i].Meta == nil {
						extra[i].Meta = map[string]any{}
					}
					extra[i].Meta["attachment"] = filename
				}
				items = append(items, extra...)
			}
		}
	}

	items = dedupeItems(items)
	for i := range items {
		items[i].LineNo = i + 1
	}

	return items, env.GetHeader("Subject"), env.Text, attachmentNames, nil
}

func parseTextLines(text string) []internal.ExtractionItem {
	lines := splitLines(text)
	out := make([]internal.ExtractionItem, 0, len(lines))
	lineNo := 0
	for _, line := range lines {
		lineNo++
		item := lineToExtractionItem(internal.SourceText, lineNo, line)
		if item == nil {
			continue
		}
		if !reLetters.MatchString(item.RawLine) {
			continue
		}
		out = append(out, *item)
	}
	return out
}

func parseHTMLTable(html string) []internal.ExtractionItem {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	out := []internal.ExtractionItem{}
	globalLine := 0
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		rows := table.Find("tr")
		if rows.Length() < 2 {
			return
		}

		headers := []string{}
		rows.First().Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			headers = append(headers, strings.ToLower(strings.TrimSpace(cell.Text())))
		})

		nameIdx := findHeaderIndex(headers, []string{"compound", "substance", "name", "product", "item"})
		amountIdx := findHeaderIndex(headers, []string{"amount", "qty", "quantity"})
		unitIdx := findHeaderIndex(headers, []string{"unit", "uom"})

		rows.Slice(1, rows.Length()).Each(func(_ int, row *goquery.Selection) {
			cells := []string{}
			row.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, normalizeSpaces(cell.Text()))
			})
			if len(cells) == 0 {
				return
			}

			nameCell := pickCell(cells, nameIdx, 0)
			if strings.TrimSpace(nameCell) == "" {
				return
			}
			amountCell := pickCell(cells, amountIdx, -1)
			unitCell := pickCell(cells, unitIdx, -1)

			parsed := util.ParseAmount(amountCell)
			globalLine++
			item := internal.ExtractionItem{
				LineNo:  globalLine,
				Source:  internal.SourceHTMLTable,
				RawLine: strings.Join(cells, " | "),
				Name:    util.StringPtr(nameCell),
				Amount:  parsed.Amount,
				Unit:    parsed.Unit,
				Meta:    map[string]any{"row": cells},
			}
			if unitCell != "" {
				item.Unit = util.StringPtr(unitCell)
			}
			out = append(out, item)
		})
	})

	return out
}

func parseXLSX(content []byte) ([]internal.ExtractionItem, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	lineNo := 0
	out := []internal.ExtractionItem{}
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		if len(rows) == 0 {
			continue
		}

		nameIdx, amountIdx, unitIdx := -1, -1, -1
		for i, row := range rows {
			cells := normalizeCells(row)
			if len(cells) == 0 {
				continue
			}
			if i < 3 && nameIdx < 0 {
				nameIdx, amountIdx, unitIdx = inferXLSColumns(cells)
				if nameIdx >= 0 || amountIdx >= 0 {
					continue
				}
			}

			if nameIdx < 0 {
				nameIdx, amountIdx, unitIdx = 0, 1, 2
			}
			name := pickCell(cells, nameIdx, 0)
			if strings.TrimSpace(name) == "" {
				continue
			}
			parsed := util.ParseAmount(pickCell(cells, amountIdx, -1))

			lineNo++
			item := internal.ExtractionItem{
				LineNo:  lineNo,
				Source:  internal.SourceXLSX,
				RawLine: strings.Join(cells, " | "),
				Name:    util.StringPtr(name),
				Amount:  parsed.Amount,
				Unit:    parsed.Unit,
				Meta:    map[string]any{"sheet": sheet, "rowNumber": i + 1},
			}
			if unit := pickCell(cells, unitIdx, -1); unit != "" {
				item.Unit = util.StringPtr(unit)
			}
			out = append(out, item)
		}
	}

	return out, nil
}

func parsePDF(content []byte) ([]internal.ExtractionItem, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, err
	}

	out := []internal.ExtractionItem{}
	lineNo := 0
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		for _, line := range splitLines(text) {
			lineNo++
			item := lineToExtractionItem(internal.SourcePDF, lineNo, line)
			if item == nil {
				continue
			}
			if item.Name == nil {
				continue
			}
			out = append(out, *item)
		}
	}
	return out, nil
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(text, "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func lineToExtractionItem(source internal.ItemSource, lineNo int, rawLine string) *internal.ExtractionItem {
	compact := normalizeSpaces(rawLine)
	if compact == "" || isLikelyNoise(compact) {
		return nil
	}

	// A single code-like token (BG8967, PC-32765) is a bare name; its digits
	// are part of the code, not a requested amount.
	if !strings.ContainsRune(compact, ' ') && util.LooksLikeCode(compact) {
		return &internal.ExtractionItem{
			LineNo:  lineNo,
			Source:  source,
			RawLine: compact,
			Name:    util.StringPtr(compact),
			Meta:    map[string]any{},
		}
	}

	parsed := util.ParseAmount(compact)
	noAmount := compact
	if parsed.AmountRaw != nil {
		idx := strings.LastIndex(noAmount, *parsed.AmountRaw)
		if idx >= 0 {
			noAmount = noAmount[:idx] + " " + noAmount[idx+len(*parsed.AmountRaw):]
		}
	}

	name := reUnitWords.ReplaceAllString(noAmount, " ")
	name = reSeps.ReplaceAllString(name, " ")
	name = normalizeSpaces(name)

	if len([]rune(name)) <= 1 {
		name = compact
	}

	item := internal.ExtractionItem{
		LineNo:  lineNo,
		Source:  source,
		RawLine: compact,
		Name:    util.StringPtr(name),
		Amount:  parsed.Amount,
		Unit:    parsed.Unit,
		Meta:    map[string]any{},
	}
	if parsed.AmountRaw != nil {
		item.Meta["amountRaw"] = *parsed.AmountRaw
	}
	return &item
}

func normalizeSpaces(input string) string {
	return strings.TrimSpace(reSpacesRun.ReplaceAllString(input, " "))
}

func isLikelyNoise(line string) bool {
	for _, re := range ignorePatterns {
		if re.MatchString(strings.TrimSpace(line)) {
			return true
		}
	}
	return false
}

func dedupeItems(items []internal.ExtractionItem) []internal.ExtractionItem {
	seen := map[string]struct{}{}
	out := make([]internal.ExtractionItem, 0, len(items))
	for _, item := range items {
		amountKey := "null"
		if item.Amount != nil {
			amountKey = fmt.Sprintf("%g", *item.Amount)
		}
		key := string(item.Source) + "|" + item.RawLine + "|" + amountKey
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
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

func pickCell(cells []string, idx int, fallback int) string {
	if idx >= 0 && idx < len(cells) {
		return strings.TrimSpace(cells[idx])
	}
	if fallback >= 0 && fallback < len(cells) {
		return strings.TrimSpace(cells[fallback])
	}
	return ""
}

func inferXLSColumns(headers []string) (nameIdx, amountIdx, unitIdx int) {
	norm := make([]string, 0, len(headers))
	for _, h := range headers {
		norm = append(norm, strings.ToLower(h))
	}
	nameIdx = findHeaderIndex(norm, []string{"compound", "substance", "name", "product", "item"})
	amountIdx = findHeaderIndex(norm, []string{"amount", "qty", "quantity"})
	unitIdx = findHeaderIndex(norm, []string{"unit", "uom"})
	return
}

func normalizeCells(row []string) []string {
	out := make([]string, 0, len(row))
	for _, c := range row {
		out = append(out, normalizeSpaces(c))
	}
	return out
}
