// Package client is the Go client for the lookup job API. It mirrors the
// wire types instead of importing the service internals so it can be vendored
// into consumers on its own.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

var (
	ErrUnauthorized  = errors.New("client: unauthorized")
	ErrQuotaExceeded = errors.New("client: quota exceeded")
	ErrNotFound      = errors.New("client: job not found")
	ErrBadRequest    = errors.New("client: invalid request")
)

// ItemInput describes one batch entry. Find jobs need a domain plus at least
// one name part; verify jobs need the email.
type ItemInput struct {
	FirstName   string            `json:"first_name,omitempty"`
	LastName    string            `json:"last_name,omitempty"`
	Domain      string            `json:"domain,omitempty"`
	Role        string            `json:"role,omitempty"`
	Email       string            `json:"email,omitempty"`
	Passthrough map[string]string `json:"passthrough,omitempty"`
}

type ItemResult struct {
	Email       string   `json:"email,omitempty"`
	Confidence  int      `json:"confidence,omitempty"`
	Deliverable bool     `json:"deliverable,omitempty"`
	Flags       []string `json:"flags,omitempty"`
}

type Item struct {
	Index       int         `json:"index"`
	Input       ItemInput   `json:"input"`
	Status      string      `json:"status"`
	Result      *ItemResult `json:"result,omitempty"`
	ErrorReason string      `json:"error_reason,omitempty"`
}

type JobSummary struct {
	ID             string     `json:"id"`
	Kind           string     `json:"kind"`
	Status         string     `json:"status"`
	TotalItems     int        `json:"total_items"`
	ProcessedCount int        `json:"processed_count"`
	SuccessCount   int        `json:"success_count"`
	FailCount      int        `json:"fail_count"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	SourceLabel    string     `json:"source_label,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// Terminal reports whether the job will make no further progress.
func (s JobSummary) Terminal() bool {
	return s.Status == "completed" || s.Status == "failed"
}

type JobDetail struct {
	JobSummary
	Items []Item `json:"items"`
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Submit enqueues a batch and returns the created job summary. Processing
// is asynchronous; use Job or a Poller to follow progress.
func (c *Client) Submit(ctx context.Context, kind string, items []ItemInput, sourceLabel string) (*JobSummary, error) {
	body := struct {
		Kind        string      `json:"kind"`
		SourceLabel string      `json:"source_label,omitempty"`
		Items       []ItemInput `json:"items"`
	}{Kind: kind, SourceLabel: sourceLabel, Items: items}

	var out JobSummary
	if err := c.call(ctx, http.MethodPost, "/api/v1/jobs", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Job(ctx context.Context, id string) (*JobDetail, error) {
	var out JobDetail
	if err := c.call(ctx, http.MethodGet, "/api/v1/jobs/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Stop(ctx context.Context, id string) (*JobSummary, error) {
	var out JobSummary
	if err := c.call(ctx, http.MethodPost, "/api/v1/jobs/"+id+"/stop", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) List(ctx context.Context, limit int) ([]JobSummary, error) {
	var out struct {
		Data []JobSummary `json:"data"`
	}
	path := "/api/v1/jobs"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	if err := c.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	detail := string(bytes.TrimSpace(msg))

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, detail)
	case http.StatusPaymentRequired:
		return fmt.Errorf("%w: %s", ErrQuotaExceeded, detail)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, detail)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", ErrBadRequest, detail)
	default:
		return fmt.Errorf("client: unexpected status %d: %s", resp.StatusCode, detail)
	}
}
