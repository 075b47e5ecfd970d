// Package feedback provides the public Go SDK for the feedback engine API.
package feedback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is the public SDK client for the feedback engine.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// ClientConfig holds client configuration.
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NewClient creates a new feedback engine client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8090"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
	}, nil
}

// Item is one raw feedback row to ingest.
type Item struct {
	Source string                 `json:"source"`
	Fields map[string]interface{} `json:"fields"`
}

// Record is a stored feedback record.
type Record struct {
	ID              string   `json:"id"`
	Source          string   `json:"source"`
	AuthorEmail     string   `json:"authorEmail,omitempty"`
	AuthorUsername  string   `json:"authorUsername,omitempty"`
	Content         string   `json:"content"`
	ProductArea     string   `json:"productArea,omitempty"`
	CustomerTier    string   `json:"customerTier"`
	Urgency         string   `json:"urgency"`
	UrgencyScore    int      `json:"urgencyScore"`
	ValueScore      int      `json:"valueScore"`
	EngagementScore *float64 `json:"engagementScore,omitempty"`
	CreatedAt       string   `json:"createdAt"`
}

// Analysis is a stored analysis for a record.
type Analysis struct {
	FeedbackID string   `json:"feedbackId"`
	Sentiment  string   `json:"sentiment"`
	Urgency    string   `json:"urgency"`
	Themes     []string `json:"themes"`
	Summary    string   `json:"summary"`
	ValueScore int      `json:"valueScore"`
	Confidence float64  `json:"confidence"`
}

// BatchResult summarizes a batch ingestion.
type BatchResult struct {
	JobID     string   `json:"jobId"`
	Processed int      `json:"processed"`
	Stored    int      `json:"stored"`
	Rejected  int      `json:"rejected"`
	Errors    []string `json:"errors,omitempty"`
}

// SearchResult is the answer to one free-text query.
type SearchResult struct {
	Results []map[string]interface{} `json:"results"`
	Summary string                   `json:"summary"`
	Count   int                      `json:"count"`
}

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode int
	Message    string `json:"error"`
	Detail     string `json:"detail,omitempty"`
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api error (%d): %s: %s", e.StatusCode, e.Message, e.Detail)
	}
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}

// Ingest stores one raw feedback row.
func (c *Client) Ingest(ctx context.Context, item Item) (*Record, error) {
	var rec Record
	if err := c.do(ctx, http.MethodPost, "/v1/feedback", item, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// IngestBatch stores many raw feedback rows in one call.
func (c *Client) IngestBatch(ctx context.Context, items []Item) (*BatchResult, error) {
	var result BatchResult
	if err := c.do(ctx, http.MethodPost, "/v1/feedback/batch", items, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Get retrieves a stored feedback record.
func (c *Client) Get(ctx context.Context, id string) (*Record, error) {
	var rec Record
	if err := c.do(ctx, http.MethodGet, "/v1/feedback/"+id, nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Analyze runs sentiment and theme analysis for a stored record.
func (c *Client) Analyze(ctx context.Context, id string) (*Analysis, error) {
	var analysis Analysis
	if err := c.do(ctx, http.MethodPost, "/v1/feedback/"+id+"/analyze", nil, &analysis); err != nil {
		return nil, err
	}
	return &analysis, nil
}

// Search answers a free-text question over stored feedback.
func (c *Client) Search(ctx context.Context, query string) (*SearchResult, error) {
	var result SearchResult
	body := map[string]string{"query": query}
	if err := c.do(ctx, http.MethodPost, "/v1/search", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Health reports whether the service is up.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(data, apiErr); err != nil {
			apiErr.Message = string(data)
		}
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}
