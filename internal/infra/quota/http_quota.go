// File: internal/infra/quota/http_quota.go
package quota

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"email-lookup-service/internal/config"
	"email-lookup-service/internal/domain/model"
	"email-lookup-service/internal/domain/ports/adapter"
)

var _ adapter.QuotaService = (*HTTPQuota)(nil)

// HTTPQuota reads an owner's remaining lookup allowance from the external
// billing service. Debiting stays on the billing side; submission only needs
// the remaining count.
type HTTPQuota struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPQuota(cfg config.QuotaConfig) *HTTPQuota {
	return &HTTPQuota{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

func (q *HTTPQuota) Remaining(ctx context.Context, ownerID string, kind model.JobKind) (int, error) {
	u := fmt.Sprintf("%s/v1/quota?owner=%s&kind=%s", q.baseURL, url.QueryEscape(ownerID), url.QueryEscape(string(kind)))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("build quota request: %w", err)
	}
	if q.apiKey != "" {
		req.Header.Set("X-Api-Key", q.apiKey)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("quota request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("quota service returned %d", resp.StatusCode)
	}

	var out struct {
		Remaining int `json:"remaining"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode quota response: %w", err)
	}
	return out.Remaining, nil
}

// Unlimited is the dev-mode stand-in when no billing service is configured.
type Unlimited struct{}

func (Unlimited) Remaining(ctx context.Context, ownerID string, kind model.JobKind) (int, error) {
	return int(^uint(0) >> 1), nil
}
