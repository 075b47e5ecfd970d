// Package enrichment provides AI analysis of feedback records with keyword
// fallbacks when the model is unavailable.
package enrichment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// CompletionClient provides chat completions using the OpenRouter API.
type CompletionClient struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
}

// ClientConfig holds completion client configuration.
type ClientConfig struct {
	APIKey      string
	Model       string // e.g., "anthropic/claude-3-5-haiku"
	BaseURL     string // Default: https://openrouter.ai/api/v1
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// NewCompletionClient creates a new completion client.
func NewCompletionClient(cfg ClientConfig) (*CompletionClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://openrouter.ai/api/v1"
	}

	if cfg.Model == "" {
		cfg.Model = "anthropic/claude-3-5-haiku"
	}

	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.2
	}

	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &CompletionClient{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest represents a chat completion request.
type CompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

// CompletionResponse represents the API response.
type CompletionResponse struct {
	ID      string             `json:"id"`
	Model   string             `json:"model"`
	Choices []CompletionChoice `json:"choices"`
	Usage   CompletionUsage    `json:"usage"`
	Error   *CompletionError   `json:"error,omitempty"`
}

// CompletionChoice contains one generated message.
type CompletionChoice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// CompletionUsage contains token usage information.
type CompletionUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionError represents an API error.
type CompletionError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// Complete sends a system+user prompt pair and returns the model's text.
func (c *CompletionClient) Complete(ctx context.Context, system, user string) (string, error) {
	reqBody := CompletionRequest{
		Model: c.model,
		Messages: []Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("HTTP-Referer", "https://signalsift.ai")
	req.Header.Set("X-Title", "Feedback Engine")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp CompletionResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != nil {
			return "", fmt.Errorf("API error: %s (type: %s)", errResp.Error.Message, errResp.Error.Type)
		}
		return "", fmt.Errorf("API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var compResp CompletionResponse
	if err := json.Unmarshal(body, &compResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if len(compResp.Choices) == 0 {
		return "", fmt.Errorf("no completion returned")
	}

	return compResp.Choices[0].Message.Content, nil
}

// Model returns the model being used.
func (c *CompletionClient) Model() string {
	return c.model
}

// Completer defines the interface for chat completion generation.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
	Model() string
}

// MockCompleter provides a function-backed completer for testing. Sub-calls
// may run concurrently, so the mock dispatches on prompt content rather than
// call order.
type MockCompleter struct {
	Respond func(system, user string) (string, error)
}

// Complete delegates to the configured function.
func (m *MockCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	if m.Respond == nil {
		return "", fmt.Errorf("no response configured")
	}
	return m.Respond(system, user)
}

// Model returns the mock model name.
func (m *MockCompleter) Model() string {
	return "mock-completion-model"
}

// Ensure implementations satisfy interface.
var (
	_ Completer = (*CompletionClient)(nil)
	_ Completer = (*MockCompleter)(nil)
)
