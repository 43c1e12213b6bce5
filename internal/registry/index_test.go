package registry

import (
	"testing"

	"chemdesk/internal"
	"chemdesk/internal/util"
)

func TestBuildIndex(t *testing.T) {
	compounds := []internal.CompoundRecord{
		{Canonical: "Adenosine", CAS: util.StringPtr("58-61-7"), RawJSON: "{}"},
	}
	variants := []internal.VariantEntry{
		{Variant: "Adenosine", Canonical: "Adenosine"},
		{Variant: "Adenocard", Canonical: "Adenosine"},
		{Variant: "BG8967", Canonical: "Bivalirudin"},
	}

	idx := BuildIndex(compounds, variants)

	if got := idx.ByVariant[util.NormalizeName("Adenocard")]; len(got) != 1 || got[0] != "Adenosine" {
		t.Fatalf("ByVariant: %v", got)
	}
	if got := idx.ByCode[util.NormalizeCode("58-61-7")]; len(got) != 1 || got[0] != "Adenosine" {
		t.Fatalf("CAS code: %v", got)
	}
	if got := idx.ByCode[util.NormalizeCode("BG8967")]; len(got) != 1 || got[0] != "Bivalirudin" {
		t.Fatalf("variant code: %v", got)
	}
	// Bivalirudin has no property row but must still be resolvable.
	if _, ok := idx.NormalizedByCanonical["Bivalirudin"]; !ok {
		t.Fatal("canonical from variants missing in index")
	}
	if _, ok := idx.Compounds["Bivalirudin"]; ok {
		t.Fatal("no property record expected for Bivalirudin")
	}
}
