package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"chemdesk/internal"
)

// MappingFile mirrors variants_mapping.json: canonical name to the list of
// known alternate spellings, brand names, and development codes.
type MappingFile map[string][]string

func LoadMapping(path string) ([]internal.VariantEntry, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseMapping(blob)
}

// ParseMapping flattens the canonical→variants object into variant entries.
// The canonical name is always registered as a variant of itself, which is
// what makes resolution idempotent for already-canonical input.
func ParseMapping(blob []byte) ([]internal.VariantEntry, error) {
	var mapping MappingFile
	if err := json.Unmarshal(blob, &mapping); err != nil {
		return nil, fmt.Errorf("parse variants mapping: %w", err)
	}

	out := make([]internal.VariantEntry, 0, len(mapping)*2)
	seen := map[string]struct{}{}

	add := func(variant, canonical string) {
		variant = strings.TrimSpace(variant)
		if variant == "" {
			return
		}
		key := variant + "\x00" + canonical
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, internal.VariantEntry{Variant: variant, Canonical: canonical})
	}

	for canonical, variants := range mapping {
		canonical = strings.TrimSpace(canonical)
		if canonical == "" {
			return nil, fmt.Errorf("variants mapping contains an empty canonical name")
		}
		add(canonical, canonical)
		for _, v := range variants {
			add(v, canonical)
		}
	}

	return out, nil
}
