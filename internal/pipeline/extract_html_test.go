package pipeline

import "testing"

func TestParseHTMLTable(t *testing.T) {
	html := `<table><tr><th>Compound</th><th>Amount</th><th>Unit</th></tr><tr><td>Adenocard</td><td>10</td><td>mg</td></tr></table>`
	items := parseHTMLTable(html)
	if len(items) != 1 {
		t.Fatalf("len=%d", len(items))
	}
	if items[0].Name == nil || *items[0].Name != "Adenocard" {
		t.Fatalf("name=%v", items[0].Name)
	}
	if items[0].Amount == nil || *items[0].Amount != 10 {
		t.Fatal("amount bad")
	}
	if items[0].Unit == nil || *items[0].Unit != "mg" {
		t.Fatalf("unit=%v", items[0].Unit)
	}
}

func TestParseHTMLTableNoHeaderMatch(t *testing.T) {
	html := `<table><tr><td>Diflucan</td><td>2</td></tr><tr><td>BG8967</td><td>5</td></tr></table>`
	items := parseHTMLTable(html)
	// First row is consumed as a header; the remaining row still extracts.
	if len(items) != 1 {
		t.Fatalf("len=%d", len(items))
	}
	if items[0].Name == nil || *items[0].Name != "BG8967" {
		t.Fatalf("name=%v", items[0].Name)
	}
}
