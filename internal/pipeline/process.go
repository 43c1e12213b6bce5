package pipeline

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"chemdesk/internal"
	"chemdesk/internal/config"
	"chemdesk/internal/storage"
)

type ProcessingService struct {
	db  *storage.DB
	cfg config.Config
}

func NewProcessingService(db *storage.DB, cfg config.Config) *ProcessingService {
	return &ProcessingService{db: db, cfg: cfg}
}

type ProcessResult struct {
	RequestID int
	Processed int
}

func (s *ProcessingService) ProcessByProviderMessageID(provider, messageID string) (ProcessResult, error) {
	request, err := s.db.MustRequestByProviderMessageID(provider, messageID)
	if err != nil {
		return ProcessResult{}, err
	}
	return s.ProcessRequest(request)
}

func (s *ProcessingService) ProcessPending(limit int, provider string) (int, int, error) {
	pending, err := s.db.ListRequestsByStatus("fetched", limit)
	if err != nil {
		return 0, 0, err
	}
	processedRequests := 0
	processedLines := 0
	for _, request := range pending {
		if provider != "" && request.Provider != provider {
			continue
		}
		res, err := s.ProcessRequest(request)
		if err != nil {
			return processedRequests, processedLines, err
		}
		processedRequests++
		processedLines += res.Processed
	}
	return processedRequests, processedLines, nil
}

func (s *ProcessingService) ProcessRequest(request internal.RequestRow) (ProcessResult, error) {
	start := time.Now()
	raw, err := os.ReadFile(request.RawRef)
	if err != nil {
		return ProcessResult{}, err
	}

	items, subject, text, attachmentNames, err := ExtractItemsFromMailRaw(raw)
	if err != nil {
		return ProcessResult{}, err
	}

	detect := DetectCompoundRequest(firstNonEmpty(subject, request.Subject), text, "", attachmentNames)
	if err := s.db.ClearRequestProcessing(request.ID); err != nil {
		return ProcessResult{}, err
	}

	if !detect.IsRequest {
		_ = s.db.UpdateRequestStatus(request.ID, "skipped")
		_ = s.db.InsertRun(traceID(), request.ID, map[string]float64{"totalMs": float64(time.Since(start).Milliseconds())}, map[string]int{"extracted": 0, "ok": 0, "review": 0, "notFound": 0})
		return ProcessResult{RequestID: request.ID, Processed: 0}, nil
	}

	normalized := NormalizeItems(items)
	resolver, err := s.loadResolver()
	if err != nil {
		return ProcessResult{}, err
	}

	okCount, reviewCount, notFoundCount := 0, 0, 0
	for _, item := range normalized {
		resolution := resolver.Resolve(item)
		extractionID, err := s.db.InsertExtraction(request.ID, item.ExtractionItem)
		if err != nil {
			return ProcessResult{}, err
		}
		if err := s.db.InsertResolution(extractionID, resolution); err != nil {
			return ProcessResult{}, err
		}

		switch resolution.Status {
		case internal.ResolveOK:
			okCount++
		case internal.ResolveReview:
			reviewCount++
		case internal.ResolveNotFound:
			notFoundCount++
		}
	}

	if err := s.db.UpdateRequestStatus(request.ID, "processed"); err != nil {
		return ProcessResult{}, err
	}
	_ = s.db.InsertRun(traceID(), request.ID, map[string]float64{"totalMs": float64(time.Since(start).Milliseconds())}, map[string]int{"extracted": len(normalized), "ok": okCount, "review": reviewCount, "notFound": notFoundCount})

	return ProcessResult{RequestID: request.ID, Processed: len(normalized)}, nil
}

func (s *ProcessingService) loadResolver() (*Resolver, error) {
	compounds, err := s.db.ListCompounds()
	if err != nil {
		return nil, err
	}
	variants, err := s.db.ListVariantEntries()
	if err != nil {
		return nil, err
	}
	return NewResolver(s.cfg, compounds, variants), nil
}

func traceID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("run-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
