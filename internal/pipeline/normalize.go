package pipeline

import (
	"chemdesk/internal"
	"chemdesk/internal/util"
)

type NormalizedItem struct {
	internal.ExtractionItem
	NormalizedName string
}

// NormalizeItems computes the comparison form for every extracted line. The
// raw line stands in when no name was parsed out of it.
func NormalizeItems(items []internal.ExtractionItem) []NormalizedItem {
	out := make([]NormalizedItem, 0, len(items))
	for _, item := range items {
		source := item.RawLine
		if item.Name != nil {
			source = *item.Name
		}
		out = append(out, NormalizedItem{
			ExtractionItem: item,
			NormalizedName: util.NormalizeName(source),
		})
	}
	return out
}
