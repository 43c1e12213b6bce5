package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"chemdesk/internal"
	"chemdesk/internal/config"
	"chemdesk/internal/connectors"
	gmailconnector "chemdesk/internal/connectors/gmail"
	imapconnector "chemdesk/internal/connectors/imap"
	"chemdesk/internal/listener"
	"chemdesk/internal/pipeline"
	"chemdesk/internal/registry"
	"chemdesk/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	cmd := os.Args[1]
	switch cmd {
	case "registry:import":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		mapping := fs.String("mapping", cfg.MappingPath, "variants mapping json path")
		compounds := fs.String("compounds", cfg.CompoundDataPath, "compound property xlsx path (empty to skip)")
		_ = fs.Parse(os.Args[2:])
		svc := registry.NewSyncService(db, cfg)
		result, err := svc.ImportLocal(*mapping, *compounds)
		must(err)
		fmt.Printf("registry import complete: variants=%d compounds=%d\n", result.Variants, result.Compounds)
	case "registry:sync":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		mode := fs.String("mode", "", "empty for full sync, or changed_day|changed_hour")
		_ = fs.Parse(os.Args[2:])
		svc := registry.NewSyncService(db, cfg)
		if strings.TrimSpace(*mode) == "" {
			count, err := svc.FullSync(context.Background())
			must(err)
			fmt.Printf("full sync complete: %d compounds\n", count)
			return
		}
		changedMode := strings.TrimPrefix(*mode, "changed_")
		count, err := svc.ChangedSync(context.Background(), changedMode)
		must(err)
		fmt.Printf("changed sync complete mode=%s compounds=%d\n", changedMode, count)
	case "mail:fetch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", "gmail", "gmail|imap")
		label := fs.String("label", "INBOX", "mailbox/label")
		max := fs.Int("max", 50, "max messages")
		_ = fs.Parse(os.Args[2:])
		conn, err := makeConnector(cfg, *provider)
		must(err)
		fetch := connectors.NewFetchService(db, cfg.RawMailDir, conn)
		result, err := fetch.FetchAndStore(*label, *max)
		must(err)
		fmt.Printf("mail fetch done provider=%s fetched=%d stored=%d\n", *provider, result.Fetched, result.Stored)
	case "mail:process":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", "gmail", "gmail|imap")
		messageID := fs.String("messageId", "", "specific message-id")
		batch := fs.Int("batch", 20, "batch size")
		_ = fs.Parse(os.Args[2:])
		processor := pipeline.NewProcessingService(db, cfg)
		if strings.TrimSpace(*messageID) != "" {
			res, err := processor.ProcessByProviderMessageID(*provider, *messageID)
			must(err)
			fmt.Printf("processed request id=%d lines=%d\n", res.RequestID, res.Processed)
			return
		}
		processedRequests, processedLines, err := processor.ProcessPending(*batch, *provider)
		must(err)
		fmt.Printf("processed pending requests=%d lines=%d\n", processedRequests, processedLines)
	case "mail:listen":
		s := listener.NewService(db, cfg)
		must(s.Run(context.Background()))
	case "export:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		requestID := fs.Int("requestId", 0, "internal request id")
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if *requestID == 0 || strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--requestId and --out are required"))
		}
		rows, err := db.GetExportRows(*requestID)
		must(err)
		if len(rows) == 0 {
			must(fmt.Errorf("no export rows for requestId=%d", *requestID))
		}
		must(pipeline.ExportRowsToXLSX(rows, *out))
		fmt.Printf("exported %d rows to %s\n", len(rows), *out)
	case "rank":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--out is required"))
		}
		compounds, err := db.ListCompounds()
		must(err)
		if len(compounds) == 0 {
			must(fmt.Errorf("no compounds stored; run registry:import or registry:sync first"))
		}
		ranked := pipeline.RankCompounds(compounds)
		must(pipeline.ExportRankingToXLSX(ranked, *out))
		fmt.Printf("ranked %d compounds to %s\n", len(ranked), *out)
	case "run":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "input file path or raw text")
		inType := fs.String("type", "", "text|html|xlsx|pdf")
		output := fs.String("output", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if *input == "" || *inType == "" || *output == "" {
			must(fmt.Errorf("--input --type --output are required"))
		}

		value := *input
		if *inType == "text" || *inType == "html" {
			if blob, err := os.ReadFile(*input); err == nil {
				value = string(blob)
			}
		}
		items, err := pipeline.ExtractItemsFromInput(*inType, value)
		must(err)
		norm := pipeline.NormalizeItems(items)

		compounds, err := db.ListCompounds()
		must(err)
		variants, err := db.ListVariantEntries()
		must(err)
		resolver := pipeline.NewResolver(cfg, compounds, variants)
		lookup := pipeline.CompoundLookup(compounds)

		exportRows := make([]internal.ResultExportRow, 0, len(norm))
		for _, item := range norm {
			resolution := resolver.Resolve(item)
			row := internal.ResultExportRow{
				InputLineNo:    item.LineNo,
				Source:         string(item.Source),
				RawLine:        item.RawLine,
				ParsedName:     item.Name,
				ParsedAmount:   item.Amount,
				ParsedUnit:     item.Unit,
				Status:         string(resolution.Status),
				Confidence:     resolution.Confidence,
				Reason:         string(resolution.Reason),
				NormalizedName: resolution.Normalized,
				Canonical:      resolution.Canonical,
			}
			pipeline.EnrichRow(&row, lookup)
			if len(resolution.Candidates) > 1 {
				row.Candidate2Name = &resolution.Candidates[1].Canonical
				row.Candidate2Score = &resolution.Candidates[1].Score
			}
			exportRows = append(exportRows, row)

			orgForm := item.RawLine
			if item.Name != nil {
				orgForm = *item.Name
			}
			fmt.Printf("%-4d %-40s -> %-40s %s\n", item.LineNo, orgForm, resolution.Normalized, resolution.Status)
		}
		must(pipeline.ExportRowsToXLSX(exportRows, *output))
		fmt.Printf("run done rows=%d output=%s\n", len(exportRows), *output)
	default:
		usage()
		os.Exit(1)
	}
}

func makeConnector(cfg config.Config, provider string) (connectors.MailConnector, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "gmail":
		return gmailconnector.NewConnector(cfg)
	case "imap":
		return imapconnector.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func usage() {
	fmt.Println("usage: chemdesk <command>")
	fmt.Println("commands:")
	fmt.Println("  registry:import [--mapping=variants_mapping.json] [--compounds=compound_data.xlsx]")
	fmt.Println("  registry:sync [--mode=changed_day|changed_hour]")
	fmt.Println("  mail:fetch --provider=gmail|imap --label=INBOX --max=50")
	fmt.Println("  mail:process --provider=gmail|imap [--messageId=...] [--batch=20]")
	fmt.Println("  mail:listen")
	fmt.Println("  export:xlsx --requestId=1 --out=./out/result.xlsx")
	fmt.Println("  rank --out=./out/enriched_compound_data.xlsx")
	fmt.Println("  run --input=... --type=text|html|xlsx|pdf --output=...xlsx")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
