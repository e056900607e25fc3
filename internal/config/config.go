// Package config loads relay configuration from an optional YAML file
// with an environment variable overlay.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/modelrelay/modelrelay/internal/guardrail"
)

// envPrefix is the prefix for environment overrides. A double
// underscore separates nesting levels so single underscores survive
// inside key names, e.g. MODELRELAY_SERVER__PORT=9090,
// MODELRELAY_BACKEND__BASE_URL=http://tgi:8080.
const envPrefix = "MODELRELAY_"

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Backend   BackendConfig   `koanf:"backend"`
	Generator GeneratorConfig `koanf:"generator"`
	Guardrail GuardrailConfig `koanf:"guardrail"`
	Storage   StorageConfig   `koanf:"storage"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Recon     ReconConfig     `koanf:"recon"`
}

type ServerConfig struct {
	Port           int           `koanf:"port"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

type BackendConfig struct {
	Type    string        `koanf:"type"` // tgi, openai
	BaseURL string        `koanf:"base_url"`
	Model   string        `koanf:"model"`
	APIKey  string        `koanf:"api_key"`
	Timeout time.Duration `koanf:"timeout"`
}

type GeneratorConfig struct {
	RetryBudget int           `koanf:"retry_budget"`
	Backoff     time.Duration `koanf:"backoff"`
	MaxRounds   int           `koanf:"max_rounds"`
	Temperature float64       `koanf:"temperature"`
	TopP        float64       `koanf:"top_p"`
	MaxTokens   int           `koanf:"max_tokens"`
}

type GuardrailConfig struct {
	Enabled bool `koanf:"enabled"`
	// Rules replaces the built-in rule set when non-empty.
	Rules []guardrail.Rule `koanf:"rules"`
}

type StorageConfig struct {
	Type   string       `koanf:"type"` // sqlite, memory, none
	SQLite SQLiteConfig `koanf:"sqlite"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

type TelemetryConfig struct {
	Enabled bool `koanf:"enabled"`
}

type ReconConfig struct {
	BaseURL  string `koanf:"base_url"`
	APIToken string `koanf:"api_token"`
}

// Load reads configuration from path (skipped when empty or missing)
// and overlays environment variables.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	setDefaults(k)

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load config file: %w", err)
			}
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(k *koanf.Koanf) {
	k.Set("server.port", 8080)
	k.Set("server.request_timeout", "5m")
	k.Set("backend.type", "tgi")
	k.Set("backend.timeout", "2m")
	k.Set("generator.retry_budget", 3)
	k.Set("generator.backoff", "2s")
	k.Set("generator.max_rounds", 8)
	k.Set("generator.temperature", 0.6)
	k.Set("generator.top_p", 0.95)
	k.Set("generator.max_tokens", 512)
	k.Set("guardrail.enabled", true)
	k.Set("storage.type", "sqlite")
	k.Set("storage.sqlite.path", "./data/modelrelay.db")
	k.Set("telemetry.enabled", true)
}
