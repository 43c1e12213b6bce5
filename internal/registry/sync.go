package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"chemdesk/internal"
	"chemdesk/internal/config"
	"chemdesk/internal/storage"
)

type SyncService struct {
	db     *storage.DB
	client *Client
	cfg    config.Config
}

type ImportResult struct {
	Compounds int
	Variants  int
}

func NewSyncService(db *storage.DB, cfg config.Config) *SyncService {
	return &SyncService{db: db, client: NewClient(cfg), cfg: cfg}
}

// ImportLocal loads the variant mapping JSON and, when a path is given, the
// compound property workbook, and upserts both into sqlite. This is the
// offline path: the files shipped with a request batch are the registry.
func (s *SyncService) ImportLocal(mappingPath, compoundsPath string) (ImportResult, error) {
	result := ImportResult{}

	variants, err := LoadMapping(mappingPath)
	if err != nil {
		return result, fmt.Errorf("import mapping: %w", err)
	}
	if err := s.db.UpsertVariants(variants); err != nil {
		return result, err
	}
	result.Variants = len(variants)
	_ = s.db.SetMetadata("registry.last_mapping_import", time.Now().UTC().Format(time.RFC3339))

	if strings.TrimSpace(compoundsPath) != "" {
		compounds, err := ImportCompoundsXLSX(compoundsPath)
		if err != nil {
			return result, fmt.Errorf("import compounds: %w", err)
		}
		if err := s.db.UpsertCompounds(compounds); err != nil {
			return result, err
		}
		result.Compounds = len(compounds)
		_ = s.db.SetMetadata("registry.last_compounds_import", time.Now().UTC().Format(time.RFC3339))
	}

	return result, nil
}

func (s *SyncService) FullSync(ctx context.Context) (int, error) {
	compounds, err := s.client.GetCompoundsScrollAll(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.db.UpsertCompounds(compounds); err != nil {
		return 0, err
	}
	if err := s.upsertDevCodeVariants(compounds); err != nil {
		return 0, err
	}
	_ = s.db.SetMetadata("registry.last_full_sync", time.Now().UTC().Format(time.RFC3339))
	if err := s.refreshMappingSnapshotIfNeeded(ctx, true); err != nil {
		return 0, err
	}
	return len(compounds), nil
}

func (s *SyncService) ChangedSync(ctx context.Context, mode string) (int, error) {
	compounds, err := s.client.GetCompoundsChanged(ctx, mode)
	if err != nil {
		return 0, err
	}
	if len(compounds) > 0 {
		if err := s.db.UpsertCompounds(compounds); err != nil {
			return 0, err
		}
		if err := s.upsertDevCodeVariants(compounds); err != nil {
			return 0, err
		}
	}
	_ = s.db.SetMetadata("registry.last_changed_sync."+mode, time.Now().UTC().Format(time.RFC3339))
	if err := s.refreshMappingSnapshotIfNeeded(ctx, false); err != nil {
		return 0, err
	}
	return len(compounds), nil
}

// Dev codes delivered with remote compounds double as variants so that code
// inputs resolve even when the local mapping predates the code.
func (s *SyncService) upsertDevCodeVariants(compounds []internal.CompoundRecord) error {
	entries := []internal.VariantEntry{}
	for _, c := range compounds {
		entries = append(entries, internal.VariantEntry{Variant: c.Canonical, Canonical: c.Canonical})
		for _, code := range c.DevCodes {
			entries = append(entries, internal.VariantEntry{Variant: code, Canonical: c.Canonical})
		}
	}
	if len(entries) == 0 {
		return nil
	}
	return s.db.UpsertVariants(entries)
}

func (s *SyncService) refreshMappingSnapshotIfNeeded(ctx context.Context, force bool) error {
	const key = "registry.last_mapping_snapshot"
	last, err := s.db.GetMetadata(key)
	if err != nil {
		return err
	}

	if !force && last != nil {
		if parsed, err := time.Parse(time.RFC3339, *last); err == nil {
			if time.Since(parsed) < 30*24*time.Hour {
				return nil
			}
		}
	}

	mapping, err := s.client.GetMappingSnapshot(ctx)
	if err != nil {
		return err
	}

	entries, err := flattenMapping(mapping)
	if err != nil {
		return err
	}
	if err := s.db.UpsertVariants(entries); err != nil {
		return err
	}

	blob, _ := json.MarshalIndent(mapping, "", "  ")
	snapshotPath := filepath.Join(s.cfg.OutputDir, "mapping-snapshot.json")
	if err := os.MkdirAll(filepath.Dir(snapshotPath), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(snapshotPath, blob, 0o644); err != nil {
		return err
	}
	return s.db.SetMetadata(key, time.Now().UTC().Format(time.RFC3339))
}

func flattenMapping(mapping MappingFile) ([]internal.VariantEntry, error) {
	blob, err := json.Marshal(mapping)
	if err != nil {
		return nil, err
	}
	return ParseMapping(blob)
}
