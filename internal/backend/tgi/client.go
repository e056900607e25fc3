// Package tgi is a client for text-generation-inference style serving
// endpoints: POST /generate with a rendered prompt, a generated text
// fragment and a finish reason back.
package tgi

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

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithToken sets a bearer token sent with every request.
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

// Client calls a TGI-style /generate endpoint. It implements
// generator.Service.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a new TGI client for the given base URL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate sends the rendered prompt and returns the normalized result.
// Transport failures, 5xx, and 429 are classified transient; a payload
// without a finish reason is malformed; remaining 4xx are caller errors.
func (c *Client) Generate(ctx context.Context, prompt string, params domain.Params) (*domain.Result, error) {
	body, err := json.Marshal(&generateRequest{
		Inputs: prompt,
		Parameters: generateParameters{
			Temperature:  params.Temperature,
			TopP:         params.TopP,
			MaxNewTokens: params.MaxTokens,
			Details:      true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(httpReq)

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
		return nil, classifyStatus(resp.StatusCode, respBody)
	}

	var result generateResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, domain.ErrMalformed("response is not valid JSON").WithCause(err)
	}
	if result.Details == nil || result.Details.FinishReason == "" {
		return nil, domain.ErrMalformed("response is missing finish reason")
	}

	return &domain.Result{
		Text:       result.GeneratedText,
		StopReason: mapFinishReason(result.Details.FinishReason),
	}, nil
}

// mapFinishReason normalizes TGI finish reasons onto the relay's stop
// reasons.
func mapFinishReason(reason string) domain.StopReason {
	switch reason {
	case "eos_token", "stop_sequence":
		return domain.StopEnd
	case "length":
		return domain.StopLength
	}
	return domain.StopOther
}

// classifyStatus maps an error status onto the relay's error taxonomy.
func classifyStatus(status int, body []byte) error {
	message := fmt.Sprintf("API error (status %d)", status)
	var apiErr errorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != "" {
		message = apiErr.Error
	}

	if status >= http.StatusInternalServerError || status == http.StatusTooManyRequests {
		return domain.ErrTransient(message).WithStatusCode(status)
	}
	return domain.ErrInvalidRequest(message).WithStatusCode(status)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "modelrelay/1.0")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
