package pipeline

import (
	"testing"

	"chemdesk/internal"
	"chemdesk/internal/config"
	"chemdesk/internal/registry"
	"chemdesk/internal/util"
)

func testResolver(t *testing.T) *Resolver {
	t.Helper()
	mapping := []byte(`{
		"Adenosine": ["Adenocard"],
		"Bivalirudin": ["BG8967", "BAYT006267"],
		"Fluconazole": ["Diflucan"],
		"Ibrutinib": ["PC-32765", "Imbruvica"]
	}`)
	variants, err := registry.ParseMapping(mapping)
	if err != nil {
		t.Fatal(err)
	}
	compounds := []internal.CompoundRecord{
		{Canonical: "Adenosine", MolecularWeight: util.FloatPtr(267.24), RawJSON: "{}"},
		{Canonical: "Ibrutinib", MolecularWeight: util.FloatPtr(440.5), RawJSON: "{}"},
	}
	cfg, _ := config.Load()
	return NewResolver(cfg, compounds, variants)
}

func itemFor(name string) NormalizedItem {
	return NormalizedItem{
		ExtractionItem: internal.ExtractionItem{LineNo: 1, Source: internal.SourceText, RawLine: name, Name: util.StringPtr(name)},
		NormalizedName: util.NormalizeName(name),
	}
}

func TestResolveMappedVariant(t *testing.T) {
	r := testResolver(t)
	cases := map[string]string{
		"Adenocard":  "Adenosine",
		"Diflucan":   "Fluconazole",
		"diflucan":   "Fluconazole",
		"Imbruvica":  "Ibrutinib",
		"BG8967":     "Bivalirudin",
		"BAYT006267": "Bivalirudin",
		"PC-32765":   "Ibrutinib",
	}
	for input, want := range cases {
		res := r.Resolve(itemFor(input))
		if res.Status != internal.ResolveOK {
			t.Fatalf("%q: status=%s", input, res.Status)
		}
		if res.Normalized != want {
			t.Fatalf("%q: normalized=%q want %q", input, res.Normalized, want)
		}
		if res.Canonical == nil || *res.Canonical != want {
			t.Fatalf("%q: canonical=%v", input, res.Canonical)
		}
	}
}

func TestResolveCanonicalIdempotent(t *testing.T) {
	r := testResolver(t)
	for _, canonical := range []string{"Adenosine", "Bivalirudin", "Fluconazole", "Ibrutinib"} {
		res := r.Resolve(itemFor(canonical))
		if res.Status != internal.ResolveOK || res.Reason != internal.ReasonCanonical {
			t.Fatalf("%q: status=%s reason=%s", canonical, res.Status, res.Reason)
		}
		if res.Normalized != canonical {
			t.Fatalf("%q: normalized=%q", canonical, res.Normalized)
		}
		if res.Confidence != 1.0 {
			t.Fatalf("%q: confidence=%v", canonical, res.Confidence)
		}
	}
}

func TestResolveUnknownKeepsInput(t *testing.T) {
	r := testResolver(t)
	res := r.Resolve(itemFor("Warfarin"))
	if res.Status != internal.ResolveNotFound {
		t.Fatalf("status=%s", res.Status)
	}
	if res.Normalized != "Warfarin" {
		t.Fatalf("normalized=%q, miss must keep the input unchanged", res.Normalized)
	}
	if res.Canonical != nil {
		t.Fatalf("canonical=%v", res.Canonical)
	}
}

func TestResolveCodeReason(t *testing.T) {
	r := testResolver(t)
	res := r.Resolve(itemFor("BG8967"))
	if res.Reason != internal.ReasonCode {
		t.Fatalf("reason=%s", res.Reason)
	}
	if res.Confidence != 0.99 {
		t.Fatalf("confidence=%v", res.Confidence)
	}
}

func TestResolveFuzzyNearMiss(t *testing.T) {
	r := testResolver(t)
	res := r.Resolve(itemFor("Adenosin"))
	if res.Status == internal.ResolveNotFound {
		t.Fatalf("near miss should not be NOT_FOUND: %+v", res)
	}
	if res.Canonical == nil || *res.Canonical != "Adenosine" {
		t.Fatalf("canonical=%v", res.Canonical)
	}
}

func TestResolveInvalidAmountDemotes(t *testing.T) {
	r := testResolver(t)
	item := itemFor("Adenocard")
	item.Amount = util.FloatPtr(0)
	res := r.Resolve(item)
	if res.Status != internal.ResolveReview {
		t.Fatalf("status=%s", res.Status)
	}
	if res.Confidence > 0.7 {
		t.Fatalf("confidence=%v", res.Confidence)
	}
}
