// Package openaicompat is a client for OpenAI-compatible legacy
// completions endpoints (vLLM, llama.cpp server, and friends): the
// rendered prompt goes to /v1/completions as a raw prompt string.
package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/modelrelay/modelrelay/internal/domain"
)

// completionRequest is the wire request for /v1/completions.
type completionRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature,omitempty"`
	TopP        float64 `json:"top_p,omitempty"`
}

// completionResponse is the wire response for /v1/completions.
type completionResponse struct {
	ID      string   `json:"id"`
	Choices []choice `json:"choices"`
}

type choice struct {
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithAPIKey sets the API key sent as a bearer token.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// Client calls an OpenAI-compatible completions endpoint. It implements
// generator.Service.
type Client struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a client for the given base URL and model.
func NewClient(baseURL, model string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		model:      model,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate sends the rendered prompt and returns the normalized result.
func (c *Client) Generate(ctx context.Context, prompt string, params domain.Params) (*domain.Result, error) {
	body, err := json.Marshal(&completionRequest{
		Model:       c.model,
		Prompt:      prompt,
		MaxTokens:   params.MaxTokens,
		Temperature: params.Temperature,
		TopP:        params.TopP,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", "modelrelay/1.0")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, domain.ErrTransient("request failed").WithCause(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.ErrTransient("failed to read response").WithCause(err)
	}

	if resp.StatusCode != http.StatusOK {
		message := fmt.Sprintf("API error (status %d)", resp.StatusCode)
		var e apiError
		if err := json.Unmarshal(respBody, &e); err == nil && e.Error.Message != "" {
			message = e.Error.Message
		}
		if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
			return nil, domain.ErrTransient(message).WithStatusCode(resp.StatusCode)
		}
		return nil, domain.ErrInvalidRequest(message).WithStatusCode(resp.StatusCode)
	}

	var result completionResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, domain.ErrMalformed("response is not valid JSON").WithCause(err)
	}
	if len(result.Choices) == 0 {
		return nil, domain.ErrMalformed("response has no choices")
	}
	first := result.Choices[0]
	if first.FinishReason == "" {
		return nil, domain.ErrMalformed("response is missing finish reason")
	}

	return &domain.Result{
		Text:       first.Text,
		StopReason: mapFinishReason(first.FinishReason),
	}, nil
}

// mapFinishReason normalizes OpenAI finish reasons onto the relay's
// stop reasons.
func mapFinishReason(reason string) domain.StopReason {
	switch reason {
	case "stop":
		return domain.StopEnd
	case "length":
		return domain.StopLength
	}
	return domain.StopOther
}
