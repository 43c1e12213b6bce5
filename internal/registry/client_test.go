package registry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"chemdesk/internal/config"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func TestGetCompoundsScrollAllWithRetry(t *testing.T) {
	attempt := 0

	cfg, _ := config.Load()
	cfg.RegistryAPIToken = "test"
	cfg.RegistryAPIBaseURL = "https://example.test/api/v1"
	cfg.RegistryRateLimitRPS = 1000

	client := NewClient(cfg)
	client.httpClient = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if r.URL.Path != "/api/v1/compound/scroll" {
				t.Fatalf("unexpected path %s", r.URL.Path)
			}
			attempt++
			if attempt == 1 {
				return &http.Response{
					StatusCode: http.StatusInternalServerError,
					Body:       io.NopCloser(strings.NewReader(`{"error":"boom"}`)),
					Header:     make(http.Header),
				}, nil
			}

			payload := map[string]any{"success": true, "data": map[string]any{"compounds": []map[string]any{}, "scrollId": nil}}
			if attempt == 2 {
				payload = map[string]any{"success": true, "data": map[string]any{"compounds": []map[string]any{{"id": 1, "canonical": "Adenosine", "molecularWeight": 267.24}}, "scrollId": "abc"}}
			}
			if attempt == 3 {
				payload = map[string]any{"success": true, "data": map[string]any{"compounds": []map[string]any{{"id": 2, "canonical": "Bivalirudin", "devCodes": []string{"BG8967"}}}, "scrollId": nil}}
			}
			blob, _ := json.Marshal(payload)
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader(string(blob))),
				Header:     make(http.Header),
			}, nil
		}),
	}

	compounds, err := client.GetCompoundsScrollAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(compounds) != 2 {
		t.Fatalf("len=%d", len(compounds))
	}
	if compounds[0].Canonical != "Adenosine" || compounds[0].MolecularWeight == nil || *compounds[0].MolecularWeight != 267.24 {
		t.Fatalf("first compound: %+v", compounds[0])
	}
	if len(compounds[1].DevCodes) != 1 || compounds[1].DevCodes[0] != "BG8967" {
		t.Fatalf("dev codes: %+v", compounds[1].DevCodes)
	}
}

func TestGetCompoundsChangedUnsupportedMode(t *testing.T) {
	cfg, _ := config.Load()
	cfg.RegistryAPIToken = "test"
	client := NewClient(cfg)
	if _, err := client.GetCompoundsChanged(context.Background(), "weekly"); err == nil {
		t.Fatal("expected error")
	}
}

func TestFetchJSONMissingToken(t *testing.T) {
	cfg, _ := config.Load()
	cfg.RegistryAPIToken = ""
	client := NewClient(cfg)
	if _, err := client.GetCompoundsScrollAll(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
