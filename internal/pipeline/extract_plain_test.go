package pipeline

import "testing"

func TestParseTextLines(t *testing.T) {
	text := "\nAdenosine 250 mg\nIbrutinib 10 g\n"
	items := parseTextLines(text)
	if len(items) != 2 {
		t.Fatalf("len=%d", len(items))
	}
	if items[0].Amount == nil || *items[0].Amount != 250 {
		t.Fatalf("amount1 bad: %+v", items[0])
	}
	if items[0].Name == nil || *items[0].Name != "Adenosine" {
		t.Fatalf("name1=%v", items[0].Name)
	}
	if items[1].Amount == nil || *items[1].Amount != 10 {
		t.Fatalf("amount2 bad: %+v", items[1])
	}
}

func TestParseTextLinesBareCode(t *testing.T) {
	items := parseTextLines("BG8967")
	if len(items) != 1 {
		t.Fatalf("len=%d", len(items))
	}
	if items[0].Name == nil || *items[0].Name != "BG8967" {
		t.Fatalf("name=%v", items[0].Name)
	}
	if items[0].Amount != nil {
		t.Fatalf("code digits must not become an amount: %v", *items[0].Amount)
	}
}

func TestParseTextLinesSkipsNoise(t *testing.T) {
	text := "Dear team,\nAdenocard 5 mg\nBest regards\nhttp://example.com\n---\n"
	items := parseTextLines(text)
	if len(items) != 1 {
		t.Fatalf("len=%d", len(items))
	}
	if items[0].Name == nil || *items[0].Name != "Adenocard" {
		t.Fatalf("name=%v", items[0].Name)
	}
}
