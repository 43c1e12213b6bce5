package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"chemdesk/internal"
	"chemdesk/internal/config"
	"chemdesk/internal/util"
)

// Client talks to the hosted compound registry. Teams without a registry
// subscription run purely on local imports; every method here requires a
// token.
type Client struct {
	cfg        config.Config
	httpClient *http.Client
	limiter    *RateLimiter
}

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Errors  json.RawMessage `json:"errors"`
	Data    json.RawMessage `json:"data"`
}

type scrollPayload struct {
	Compounds []map[string]any `json:"compounds"`
	ScrollID  *string          `json:"scrollId"`
	Total     *int             `json:"total"`
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.RegistryTimeoutMs) * time.Millisecond},
		limiter:    NewRateLimiter(cfg.RegistryRateLimitRPS),
	}
}

func (c *Client) GetCompoundsScrollAll(ctx context.Context) ([]internal.CompoundRecord, error) {
	return c.getCompoundsScroll(ctx, map[string]string{})
}

// GetCompoundsChanged fetches compounds updated within the configured
// lookback window. Mode "day" uses the day lookback, "hour" the hour one.
func (c *Client) GetCompoundsChanged(ctx context.Context, mode string) ([]internal.CompoundRecord, error) {
	params := map[string]string{}
	switch mode {
	case "day":
		params["day"] = strconv.Itoa(c.cfg.ChangedLookbackDays)
	case "hour":
		params["hour"] = strconv.Itoa(c.cfg.ChangedLookbackHrs)
	default:
		return nil, fmt.Errorf("unsupported changed mode: %s", mode)
	}
	return c.getCompoundsScroll(ctx, params)
}

// GetMappingSnapshot fetches the full variant mapping as served by the
// registry, in the same shape as the local variants_mapping.json.
func (c *Client) GetMappingSnapshot(ctx context.Context) (MappingFile, error) {
	body, err := c.fetchJSON(ctx, "mapping/full/", map[string]string{})
	if err != nil {
		return nil, err
	}
	var out MappingFile
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) getCompoundsScroll(ctx context.Context, params map[string]string) ([]internal.CompoundRecord, error) {
	all := make([]internal.CompoundRecord, 0)
	seen := map[string]struct{}{}
	var scrollID string

	for {
		query := map[string]string{}
		for k, v := range params {
			query[k] = v
		}
		if scrollID != "" {
			query["scrollId"] = scrollID
		}

		body, err := c.fetchJSON(ctx, "compound/scroll", query)
		if err != nil {
			return nil, err
		}

		var payload scrollPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, err
		}

		for _, raw := range payload.Compounds {
			record, err := toCompoundRecord(raw)
			if err != nil {
				continue
			}
			all = append(all, record)
		}

		if payload.ScrollID == nil || *payload.ScrollID == "" || len(payload.Compounds) == 0 {
			break
		}
		if _, ok := seen[*payload.ScrollID]; ok {
			break
		}
		seen[*payload.ScrollID] = struct{}{}
		scrollID = *payload.ScrollID
	}

	return all, nil
}

func (c *Client) fetchJSON(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	if strings.TrimSpace(c.cfg.RegistryAPIToken) == "" {
		return nil, errors.New("missing REGISTRY_API_TOKEN")
	}

	baseURL := strings.TrimRight(c.cfg.RegistryAPIBaseURL, "/") + "/"
	u, err := url.Parse(baseURL + endpoint)
	if err != nil {
		return nil, err
	}

	q := u.Query()
	for k, v := range params {
		if strings.TrimSpace(v) != "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()

	var lastErr error
	for attempt := 1; attempt <= 5; attempt++ {
		c.limiter.WaitTurn()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.RegistryAPIToken)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if isRetryableStatus(resp.StatusCode) && attempt < 5 {
				backoff := time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
				time.Sleep(backoff)
				lastErr = fmt.Errorf("registry status %d", resp.StatusCode)
				continue
			}
			return nil, fmt.Errorf("registry api error: status=%d body=%s", resp.StatusCode, string(body))
		}

		var apiResp apiResponse
		if err := json.Unmarshal(body, &apiResp); err != nil {
			return nil, err
		}
		if !apiResp.Success {
			return nil, fmt.Errorf("registry api unsuccessful: %s", string(apiResp.Errors))
		}
		return apiResp.Data, nil
	}

	if lastErr == nil {
		lastErr = errors.New("registry request failed")
	}
	return nil, lastErr
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func toCompoundRecord(raw map[string]any) (internal.CompoundRecord, error) {
	canonical, _ := raw["canonical"].(string)
	canonical = strings.TrimSpace(canonical)
	if canonical == "" {
		return internal.CompoundRecord{}, errors.New("empty canonical name")
	}

	rawJSON, _ := json.Marshal(raw)
	record := internal.CompoundRecord{
		Canonical: canonical,
		RawJSON:   string(rawJSON),
	}
	record.RegistryID = toIntPtr(raw["id"])
	record.Formula = toStringPtr(raw["formula"])
	record.CAS = toStringPtr(raw["cas"])
	record.MolecularWeight = toFloatPtr(raw["molecularWeight"])
	record.UpdatedAt = toStringPtr(raw["updatedAt"])
	record.DevCodes = toStringSlice(raw["devCodes"])

	return record, nil
}

func toIntPtr(v any) *int {
	switch t := v.(type) {
	case int:
		return util.IntPtr(t)
	case int64:
		return util.IntPtr(int(t))
	case float64:
		return util.IntPtr(int(t))
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return util.IntPtr(int(i))
		}
	}
	return nil
}

func toFloatPtr(v any) *float64 {
	switch t := v.(type) {
	case float64:
		return &t
	case int:
		f := float64(t)
		return &f
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return &f
		}
	}
	return nil
}

func toStringPtr(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return util.StringPtr(s)
}

func toStringSlice(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		s, ok := item.(string)
		if ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}
