package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"chemdesk/internal"
	"chemdesk/internal/config"
	"chemdesk/internal/registry"
	"chemdesk/internal/storage"
	"chemdesk/internal/util"
)

const smokeMail = "From: lab@customer.example\r\n" +
	"To: desk@chemdesk.example\r\n" +
	"Subject: Quote request for compounds\r\n" +
	"Date: Mon, 24 Aug 2026 09:15:00 +0200\r\n" +
	"Message-ID: <smoke-1@customer.example>\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Dear team,\r\n" +
	"\r\n" +
	"Adenocard 250 mg\r\n" +
	"BG8967 10 g\r\n" +
	"Unknownium 5 mg\r\n" +
	"\r\n" +
	"Best regards\r\n"

func TestProcessRequestEndToEnd(t *testing.T) {
	dir := t.TempDir()

	db, err := storage.Open(filepath.Join(dir, "chemdesk.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	variants, err := registry.ParseMapping([]byte(`{
		"Adenosine": ["Adenocard"],
		"Bivalirudin": ["BG8967", "BAYT006267"],
		"Fluconazole": ["Diflucan"]
	}`))
	if err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertVariants(variants); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertCompounds([]internal.CompoundRecord{
		{Canonical: "Adenosine", Formula: util.StringPtr("C10H13N5O4"), CAS: util.StringPtr("58-61-7"), MolecularWeight: util.FloatPtr(267.24), RawJSON: "{}"},
		{Canonical: "Bivalirudin", MolecularWeight: util.FloatPtr(2180.29), RawJSON: "{}"},
	}); err != nil {
		t.Fatal(err)
	}

	rawRef := filepath.Join(dir, "smoke.eml")
	if err := os.WriteFile(rawRef, []byte(smokeMail), 0o644); err != nil {
		t.Fatal(err)
	}
	request, err := db.UpsertRequest("imap", "<smoke-1@customer.example>", "Quote request for compounds", "lab@customer.example", "2026-08-24T09:15:00+02:00", "deadbeef", rawRef, "fetched")
	if err != nil {
		t.Fatal(err)
	}

	cfg, _ := config.Load()
	svc := NewProcessingService(db, cfg)
	res, err := svc.ProcessRequest(request)
	if err != nil {
		t.Fatal(err)
	}
	if res.Processed != 3 {
		t.Fatalf("processed=%d", res.Processed)
	}

	updated, err := db.GetRequestByID(request.ID)
	if err != nil {
		t.Fatal(err)
	}
	if updated == nil || updated.Status != "processed" {
		t.Fatalf("request status: %+v", updated)
	}

	rows, err := db.GetExportRows(request.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("export rows=%d", len(rows))
	}

	byRaw := map[string]internal.ResultExportRow{}
	for _, row := range rows {
		byRaw[row.RawLine] = row
	}

	adenocard, ok := byRaw["Adenocard 250 mg"]
	if !ok {
		t.Fatal("adenocard row missing")
	}
	if adenocard.Status != string(internal.ResolveOK) {
		t.Fatalf("adenocard status=%s", adenocard.Status)
	}
	if adenocard.Canonical == nil || *adenocard.Canonical != "Adenosine" {
		t.Fatalf("adenocard canonical=%v", adenocard.Canonical)
	}
	if adenocard.MolecularWeight == nil || *adenocard.MolecularWeight != 267.24 {
		t.Fatalf("adenocard molecular weight=%v", adenocard.MolecularWeight)
	}
	if adenocard.ParsedAmount == nil || *adenocard.ParsedAmount != 250 {
		t.Fatalf("adenocard amount=%v", adenocard.ParsedAmount)
	}

	code, ok := byRaw["BG8967 10 g"]
	if !ok {
		t.Fatal("code row missing")
	}
	if code.Canonical == nil || *code.Canonical != "Bivalirudin" {
		t.Fatalf("code canonical=%v", code.Canonical)
	}

	unknown, ok := byRaw["Unknownium 5 mg"]
	if !ok {
		t.Fatal("unknown row missing")
	}
	if unknown.Status != string(internal.ResolveNotFound) {
		t.Fatalf("unknown status=%s", unknown.Status)
	}
	if unknown.NormalizedName != "Unknownium" {
		t.Fatalf("unknown normalized=%q, miss must keep the input unchanged", unknown.NormalizedName)
	}
	if unknown.Formula != nil || unknown.MolecularWeight != nil {
		t.Fatal("unknown row must not carry compound columns")
	}

	out := filepath.Join(dir, "results.xlsx")
	if err := ExportRowsToXLSX(rows, out); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatal(err)
	}
}

func TestProcessRequestSkipsNonRequestMail(t *testing.T) {
	dir := t.TempDir()

	db, err := storage.Open(filepath.Join(dir, "chemdesk.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mail := "From: newsletter@vendor.example\r\n" +
		"Subject: Monthly newsletter\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"Read about our new office opening.\r\n"
	rawRef := filepath.Join(dir, "newsletter.eml")
	if err := os.WriteFile(rawRef, []byte(mail), 0o644); err != nil {
		t.Fatal(err)
	}
	request, err := db.UpsertRequest("imap", "<news-1@vendor.example>", "Monthly newsletter", "newsletter@vendor.example", "", "cafe", rawRef, "fetched")
	if err != nil {
		t.Fatal(err)
	}

	cfg, _ := config.Load()
	res, err := NewProcessingService(db, cfg).ProcessRequest(request)
	if err != nil {
		t.Fatal(err)
	}
	if res.Processed != 0 {
		t.Fatalf("processed=%d", res.Processed)
	}

	updated, err := db.GetRequestByID(request.ID)
	if err != nil {
		t.Fatal(err)
	}
	if updated == nil || !strings.EqualFold(updated.Status, "skipped") {
		t.Fatalf("request status: %+v", updated)
	}
}
