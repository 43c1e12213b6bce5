package pipeline

import (
	"sort"

	"chemdesk/internal"
)

// CompoundLookup keys compound records by canonical name for joining.
func CompoundLookup(compounds []internal.CompoundRecord) map[string]internal.CompoundRecord {
	out := make(map[string]internal.CompoundRecord, len(compounds))
	for _, c := range compounds {
		out[c.Canonical] = c
	}
	return out
}

// EnrichRow fills the property columns of a resolved export row from the
// compound table. A canonical name without a property row leaves the columns
// empty and reports false; the row itself is never dropped.
func EnrichRow(row *internal.ResultExportRow, lookup map[string]internal.CompoundRecord) bool {
	if row.Canonical == nil {
		return false
	}
	compound, ok := lookup[*row.Canonical]
	if !ok {
		return false
	}
	row.Formula = compound.Formula
	row.CAS = compound.CAS
	row.MolecularWeight = compound.MolecularWeight
	return true
}

// CompoundScore is the ranking score. Molecular weight for now; swap the
// body when a composite score lands.
func CompoundScore(c internal.CompoundRecord) float64 {
	if c.MolecularWeight == nil {
		return 0
	}
	return *c.MolecularWeight
}

// RankCompounds orders compounds by ascending score, canonical name breaking
// ties so the ranking is stable across runs.
func RankCompounds(compounds []internal.CompoundRecord) []internal.RankedCompound {
	out := make([]internal.RankedCompound, 0, len(compounds))
	for _, c := range compounds {
		out = append(out, internal.RankedCompound{
			Canonical:       c.Canonical,
			MolecularWeight: c.MolecularWeight,
			Score:           CompoundScore(c),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score < out[j].Score
		}
		return out[i].Canonical < out[j].Canonical
	})
	return out
}
