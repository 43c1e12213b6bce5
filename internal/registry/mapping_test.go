package registry

import "testing"

func TestParseMapping(t *testing.T) {
	blob := []byte(`{
		"Adenosine": ["Adenocard", "ADO"],
		"Ibrutinib": ["PC-32765"]
	}`)

	entries, err := ParseMapping(blob)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 5 {
		t.Fatalf("len=%d", len(entries))
	}

	byVariant := map[string]string{}
	for _, e := range entries {
		byVariant[e.Variant] = e.Canonical
	}
	if byVariant["Adenocard"] != "Adenosine" {
		t.Fatalf("Adenocard -> %q", byVariant["Adenocard"])
	}
	if byVariant["Adenosine"] != "Adenosine" {
		t.Fatal("canonical must be a variant of itself")
	}
	if byVariant["PC-32765"] != "Ibrutinib" {
		t.Fatalf("PC-32765 -> %q", byVariant["PC-32765"])
	}
}

func TestParseMappingDedupes(t *testing.T) {
	blob := []byte(`{"Adenosine": ["Adenocard", "Adenocard", "Adenosine"]}`)
	entries, err := ParseMapping(blob)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("len=%d", len(entries))
	}
}

func TestParseMappingEmptyCanonical(t *testing.T) {
	if _, err := ParseMapping([]byte(`{" ": ["x"]}`)); err == nil {
		t.Fatal("expected error for empty canonical")
	}
}

func TestParseMappingBadJSON(t *testing.T) {
	if _, err := ParseMapping([]byte(`["not", "an", "object"]`)); err == nil {
		t.Fatal("expected error")
	}
}
