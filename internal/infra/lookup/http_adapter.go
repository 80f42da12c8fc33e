// File: internal/infra/lookup/http_adapter.go
package lookup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"email-lookup-service/internal/config"
	"email-lookup-service/internal/domain/ports/adapter"
	"email-lookup-service/internal/infra/metrics"
)

var _ adapter.LookupAdapter = (*HTTPAdapter)(nil)

// failure classes surfaced in ErrorReason when the retry budget runs out
const (
	reasonTimeout    = "timeout"
	reasonConnection = "connection"
	reasonRateLimit  = "rate_limit"
	reasonServer     = "server"
)

// HTTPAdapter talks to the external find/verify provider over JSON HTTP.
// It owns the per-call resilience policy: a bounded per-attempt timeout and
// exponential backoff between attempts (base doubling per attempt). Once the
// budget is exhausted the failure surfaces as an error *outcome*, not a Go
// error, so the worker records the item and moves on.
type HTTPAdapter struct {
	baseURL     string
	apiKey      string
	maxAttempts int
	retryBase   time.Duration
	client      *http.Client
	log         *zerolog.Logger
}

func NewHTTPAdapter(cfg config.LookupConfig, logger *zerolog.Logger) *HTTPAdapter {
	alog := logger.With().Str("component", "LookupAdapter").Logger()
	return &HTTPAdapter{
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		maxAttempts: cfg.MaxAttempts,
		retryBase:   cfg.RetryBase,
		client:      &http.Client{Timeout: cfg.Timeout},
		log:         &alog,
	}
}

type findResponse struct {
	Email      string   `json:"email"`
	Confidence int      `json:"confidence"`
	Status     string   `json:"status"`
	Flags      []string `json:"flags"`
}

type verifyResponse struct {
	Status      string   `json:"status"`
	Confidence  int      `json:"confidence"`
	Deliverable bool     `json:"deliverable"`
	Flags       []string `json:"flags"`
}

func (a *HTTPAdapter) Find(ctx context.Context, req adapter.FindRequest) (*adapter.FindResult, error) {
	payload := map[string]string{
		"first_name": req.FirstName,
		"last_name":  req.LastName,
		"domain":     req.Domain,
	}
	if req.Role != "" {
		payload["role"] = req.Role
	}

	start := time.Now()
	var out findResponse
	reason, err := a.post(ctx, "find", "/v1/email/find", payload, &out)
	if err != nil {
		return nil, err
	}
	if reason != "" {
		metrics.ObserveLookup("find", "error", int(time.Since(start)/time.Millisecond))
		return &adapter.FindResult{Status: adapter.LookupStatusError, ErrorReason: reason}, nil
	}

	res := &adapter.FindResult{
		Email:      out.Email,
		Confidence: out.Confidence,
		Status:     adapter.LookupStatus(out.Status),
		Flags:      out.Flags,
	}
	if out.Email == "" && res.Status != adapter.LookupStatusError {
		res.Status = adapter.LookupStatusNotFound
	}
	metrics.ObserveLookup("find", string(res.Status), int(time.Since(start)/time.Millisecond))
	return res, nil
}

func (a *HTTPAdapter) Verify(ctx context.Context, email string) (*adapter.VerifyResult, error) {
	start := time.Now()
	var out verifyResponse
	reason, err := a.post(ctx, "verify", "/v1/email/verify", map[string]string{"email": email}, &out)
	if err != nil {
		return nil, err
	}
	if reason != "" {
		metrics.ObserveLookup("verify", "error", int(time.Since(start)/time.Millisecond))
		return &adapter.VerifyResult{Status: adapter.LookupStatusError, ErrorReason: reason}, nil
	}

	res := &adapter.VerifyResult{
		Status:      adapter.LookupStatus(out.Status),
		Confidence:  out.Confidence,
		Deliverable: out.Deliverable,
		Flags:       out.Flags,
	}
	if res.Status == "" {
		res.Status = adapter.LookupStatusUnknown
	}
	metrics.ObserveLookup("verify", string(res.Status), int(time.Since(start)/time.Millisecond))
	return res, nil
}

// post runs the request with the retry policy. A non-empty reason return
// means the budget is exhausted and the caller should surface an error
// outcome; a non-nil error return means the request itself could not be
// built (programmer error, no retry).
func (a *HTTPAdapter) post(ctx context.Context, kind, path string, payload interface{}, out interface{}) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var lastReason string
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		if attempt > 1 {
			// 2s, 4s, 8s, ... between attempts
			delay := a.retryBase << (attempt - 2)
			metrics.IncLookupRetry(kind, lastReason)
			select {
			case <-ctx.Done():
				return reasonTimeout, nil
			case <-time.After(delay):
			}
		}

		reason, retry := a.attempt(ctx, path, body, out)
		if reason == "" {
			return "", nil
		}
		lastReason = reason
		if !retry {
			break
		}
		a.log.Debug().Str("kind", kind).Int("attempt", attempt).Str("reason", reason).Msg("lookup attempt failed")
	}
	return lastReason, nil
}

// attempt performs one HTTP exchange and classifies the failure.
func (a *HTTPAdapter) attempt(ctx context.Context, path string, body []byte, out interface{}) (reason string, retry bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return reasonConnection, false
	}
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("X-Api-Key", a.apiKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		var netErr net.Error
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return reasonTimeout, true
		case errors.As(err, &netErr) && netErr.Timeout():
			return reasonTimeout, true
		default:
			return reasonConnection, true
		}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return reasonRateLimit, true
	case resp.StatusCode >= 500:
		return reasonServer, true
	case resp.StatusCode >= 400:
		return fmt.Sprintf("provider rejected request (%d)", resp.StatusCode), false
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return reasonServer, true
	}
	return "", false
}
