package registry

import (
	"chemdesk/internal"
	"chemdesk/internal/util"
)

// Index is the in-memory resolution structure: exact lookups by variant,
// canonical and code, plus token postings for fuzzy candidate recall.
// Canonicals appear in the index even when no property row exists for them,
// so resolution never depends on the property table being complete.
type Index struct {
	Compounds             map[string]internal.CompoundRecord
	ByVariant             map[string][]string
	ByCanonical           map[string][]string
	ByCode                map[string][]string
	TokenToCanonicals     map[string]map[string]struct{}
	NormalizedByCanonical map[string]string
}

func BuildIndex(compounds []internal.CompoundRecord, variants []internal.VariantEntry) *Index {
	idx := &Index{
		Compounds:             map[string]internal.CompoundRecord{},
		ByVariant:             map[string][]string{},
		ByCanonical:           map[string][]string{},
		ByCode:                map[string][]string{},
		TokenToCanonicals:     map[string]map[string]struct{}{},
		NormalizedByCanonical: map[string]string{},
	}

	addCanonical := func(canonical string) {
		if _, ok := idx.NormalizedByCanonical[canonical]; ok {
			return
		}
		norm := util.NormalizeName(canonical)
		idx.NormalizedByCanonical[canonical] = norm
		idx.ByCanonical[norm] = appendUnique(idx.ByCanonical[norm], canonical)
		for _, token := range util.Tokenize(canonical) {
			if _, ok := idx.TokenToCanonicals[token]; !ok {
				idx.TokenToCanonicals[token] = map[string]struct{}{}
			}
			idx.TokenToCanonicals[token][canonical] = struct{}{}
		}
	}

	addCode := func(code, canonical string) {
		norm := util.NormalizeCode(code)
		if norm == "" {
			return
		}
		idx.ByCode[norm] = appendUnique(idx.ByCode[norm], canonical)
	}

	for _, c := range compounds {
		idx.Compounds[c.Canonical] = c
		addCanonical(c.Canonical)
		if c.CAS != nil {
			addCode(*c.CAS, c.Canonical)
		}
		for _, code := range c.DevCodes {
			addCode(code, c.Canonical)
		}
	}

	for _, entry := range variants {
		addCanonical(entry.Canonical)
		norm := util.NormalizeName(entry.Variant)
		if norm != "" {
			idx.ByVariant[norm] = appendUnique(idx.ByVariant[norm], entry.Canonical)
		}
		if util.LooksLikeCode(entry.Variant) {
			addCode(entry.Variant, entry.Canonical)
		}
		for _, token := range util.Tokenize(entry.Variant) {
			if _, ok := idx.TokenToCanonicals[token]; !ok {
				idx.TokenToCanonicals[token] = map[string]struct{}{}
			}
			idx.TokenToCanonicals[token][entry.Canonical] = struct{}{}
		}
	}

	return idx
}

func appendUnique(list []string, value string) []string {
	for _, existing := range list {
		if existing == value {
			return list
		}
	}
	return append(list, value)
}
