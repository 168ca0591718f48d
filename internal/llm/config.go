package llm

import (
	"fmt"
	"time"
)

// Config selects and tunes the provider.
type Config struct {
	// Provider is one of "openai", "openrouter", "anthropic", "gemini".
	Provider string
	APIKey   string
	// Model accepts a friendly name ("gpt-4o-mini", "claude-haiku", "gemini-flash") or a raw
	// model id. Empty selects the provider default.
	Model string
	// BaseURL overrides the endpoint for OpenAI-compatible providers.
	BaseURL string
	// Timeout bounds a single Generate call including retries. Default: 30s.
	Timeout time.Duration
	Retry   RetryConfig
}

// RetryConfig configures retry behavior for transient failures.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// defaultModels are used when Config.Model is empty.
var defaultModels = map[string]string{
	"openai":     "gpt-4o-mini",
	"openrouter": "google/gemini-2.0-flash-exp",
	"anthropic":  "claude-haiku",
	"gemini":     "gemini-flash",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Provider: "openai",
		Retry: RetryConfig{
			MaxAttempts: 2,
			InitialWait: 500 * time.Millisecond,
			MaxWait:     5 * time.Second,
			Multiplier:  2.0,
		},
		Timeout: 30 * time.Second,
	}
}

// Validate checks that the selected provider has its required API key set.
func (c Config) Validate() error {
	switch c.Provider {
	case "openai", "openrouter", "anthropic", "gemini":
		if c.APIKey == "" {
			return fmt.Errorf("an API key is required for the %s provider", c.Provider)
		}
	case "":
		return fmt.Errorf("no LLM provider configured")
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	return nil
}

func (c Config) model() string {
	if c.Model != "" {
		return c.Model
	}
	return defaultModels[c.Provider]
}
