package util

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  float64
		unit  string
	}{
		{name: "milligrams", input: "Adenosine 250 mg", want: 250, unit: "mg"},
		{name: "decimal comma", input: "diflucan 1,5 l", want: 1.5, unit: "l"},
		{name: "decimal dot", input: "diflucan 1.5 l", want: 1.5, unit: "l"},
		{name: "thousand with space", input: "Ibrutinib 1 000 g", want: 1000, unit: "g"},
		{name: "thousand dot", input: "Ibrutinib 1.000 g", want: 1000, unit: "g"},
		{name: "millimole", input: "Bivalirudin 2 mmol", want: 2, unit: "mmol"},
		{name: "micro ascii", input: "Adenocard 50 ug", want: 50, unit: "ug"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			parsed := ParseAmount(tc.input)
			if parsed.Amount == nil {
				t.Fatalf("amount is nil")
			}
			if *parsed.Amount != tc.want {
				t.Fatalf("got %v want %v", *parsed.Amount, tc.want)
			}
			if parsed.Unit == nil || *parsed.Unit != tc.unit {
				t.Fatalf("unit got %v want %q", parsed.Unit, tc.unit)
			}
		})
	}
}

func TestParseAmountNoNumber(t *testing.T) {
	parsed := ParseAmount("Adenosine")
	if parsed.Amount != nil {
		t.Fatalf("expected nil amount, got %v", *parsed.Amount)
	}
}
