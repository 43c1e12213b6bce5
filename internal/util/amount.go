package util

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	unitPattern   = regexp.MustCompile(`(?i)\b(mg|g|kg|ug|µg|ml|l|mol|mmol|pcs|pc|vials?)\b\.?`)
	numberPattern = regexp.MustCompile(`(?i)(?:^|[^0-9.,])(\d{1,3}(?:[\s.,]\d{3})+|\d+(?:[.,]\d+)?)`)
	amountWithUnit = regexp.MustCompile(`(?i)(?:^|[^0-9.,])(\d{1,3}(?:[\s.,]\d{3})+|\d+(?:[.,]\d+)?)\s*(mg|g|kg|ug|µg|ml|l|mol|mmol|pcs|pc|vials?)\b\.?`)
)

type ParsedAmount struct {
	Amount    *float64
	Unit      *string
	AmountRaw *string
}

// ParseAmount pulls the requested amount and unit out of a request line, e.g.
// "Ibrutinib 250 mg" or "diflucan 1,5 l". The last amount on the line wins so
// trailing quantities beat embedded numbers in the name.
func ParseAmount(input string) ParsedAmount {
	line := strings.ReplaceAll(input, "\u00A0", " ")

	amountRaw := ""
	amountToken := ""

	wm := amountWithUnit.FindAllStringSubmatch(line, -1)
	if len(wm) > 0 {
		last := wm[len(wm)-1]
		amountRaw = strings.TrimSpace(last[1] + " " + last[2])
		amountToken = strings.TrimSpace(last[1])
	} else {
		nm := numberPattern.FindAllStringSubmatch(line, -1)
		if len(nm) > 0 {
			last := nm[len(nm)-1]
			amountRaw = strings.TrimSpace(last[1])
			amountToken = strings.TrimSpace(last[1])
		}
	}

	var amountPtr *float64
	if amountToken != "" {
		norm := normalizeNumericToken(amountToken)
		if parsed, err := strconv.ParseFloat(norm, 64); err == nil {
			amountPtr = FloatPtr(parsed)
		}
	}

	var unitPtr *string
	if um := unitPattern.FindStringSubmatch(line); len(um) > 1 {
		u := normalizeUnit(um[1])
		unitPtr = &u
	}

	var amountRawPtr *string
	if amountRaw != "" {
		amountRawPtr = &amountRaw
	}

	return ParsedAmount{Amount: amountPtr, Unit: unitPtr, AmountRaw: amountRawPtr}
}

func normalizeUnit(unit string) string {
	u := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(unit), "."))
	switch u {
	case "µg", "ug":
		return "ug"
	case "pc", "pcs":
		return "pcs"
	case "vial", "vials":
		return "vials"
	default:
		return u
	}
}

func normalizeNumericToken(token string) string {
	compact := strings.ReplaceAll(token, " ", "")
	if regexp.MustCompile(`^\d{1,3}(?:\.\d{3})+$`).MatchString(compact) {
		return strings.ReplaceAll(compact, ".", "")
	}
	if regexp.MustCompile(`^\d{1,3}(?:,\d{3})+$`).MatchString(compact) {
		return strings.ReplaceAll(compact, ",", "")
	}
	if strings.Contains(compact, ",") && !strings.Contains(compact, ".") {
		return strings.ReplaceAll(compact, ",", ".")
	}
	return compact
}
