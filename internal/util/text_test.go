package util

import "testing"

func TestNormalizeNameIdempotent(t *testing.T) {
	cases := []string{"Adenocard", "  ibrutinib ", "PC–32765", `"Diflucan"`}
	for _, input := range cases {
		once := NormalizeName(input)
		twice := NormalizeName(once)
		if once != twice {
			t.Fatalf("not idempotent: %q -> %q -> %q", input, once, twice)
		}
	}
}

func TestNormalizeName(t *testing.T) {
	if got := NormalizeName("  Adeno   Card "); got != "ADENO CARD" {
		t.Fatalf("got %q", got)
	}
	if got := NormalizeName("PC–32765"); got != "PC-32765" {
		t.Fatalf("dash not unified: %q", got)
	}
}

func TestLooksLikeCode(t *testing.T) {
	positives := []string{"BG8967", "PC-32765", "BAYT006267", "58-61-7"}
	for _, input := range positives {
		if !LooksLikeCode(input) {
			t.Fatalf("%q should look like a code", input)
		}
	}
	negatives := []string{"Adenosine", "diflucan", "ab", "Acetylsalicylic acid"}
	for _, input := range negatives {
		if LooksLikeCode(input) {
			t.Fatalf("%q should not look like a code", input)
		}
	}
}

func TestDiceCoefficient(t *testing.T) {
	if got := DiceCoefficient("ADENOSINE", "ADENOSINE"); got != 1 {
		t.Fatalf("identical strings: %v", got)
	}
	if got := DiceCoefficient("ADENOSINE", ""); got != 0 {
		t.Fatalf("empty string: %v", got)
	}
	close := DiceCoefficient("ADENOSINE", "ADENOSIN")
	far := DiceCoefficient("ADENOSINE", "BIVALIRUDIN")
	if close <= far {
		t.Fatalf("close=%v far=%v", close, far)
	}
}
