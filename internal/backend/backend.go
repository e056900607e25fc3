// Package backend creates generation service clients from
// configuration.
package backend

import (
	"fmt"
	"net/http"
	"time"

	"github.com/modelrelay/modelrelay/internal/backend/openaicompat"
	"github.com/modelrelay/modelrelay/internal/backend/tgi"
	"github.com/modelrelay/modelrelay/internal/generator"
)

// Config selects and configures a backend client.
type Config struct {
	// Type is the backend flavor: "tgi" or "openai".
	Type string
	// BaseURL is the endpoint base URL.
	BaseURL string
	// Model is the model identifier, required for OpenAI-compatible
	// endpoints and ignored by TGI (one model per server).
	Model string
	// APIKey is an optional bearer token.
	APIKey string
	// Timeout bounds each HTTP call.
	Timeout time.Duration
}

// New creates the configured generation service client.
func New(cfg Config) (generator.Service, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("backend base_url is required")
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}

	switch cfg.Type {
	case "tgi":
		opts := []tgi.ClientOption{tgi.WithHTTPClient(httpClient)}
		if cfg.APIKey != "" {
			opts = append(opts, tgi.WithToken(cfg.APIKey))
		}
		return tgi.NewClient(cfg.BaseURL, opts...), nil
	case "openai":
		if cfg.Model == "" {
			return nil, fmt.Errorf("backend model is required for openai type")
		}
		opts := []openaicompat.ClientOption{openaicompat.WithHTTPClient(httpClient)}
		if cfg.APIKey != "" {
			opts = append(opts, openaicompat.WithAPIKey(cfg.APIKey))
		}
		return openaicompat.NewClient(cfg.BaseURL, cfg.Model, opts...), nil
	}
	return nil, fmt.Errorf("unknown backend type %q", cfg.Type)
}
