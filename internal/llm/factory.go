package llm

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"trivia-service/internal/metrics"
)

// NewProvider creates a Provider from configuration, wrapped as
// caller → timeout → retry → instrumentation → base.
func NewProvider(ctx context.Context, cfg Config, log zerolog.Logger, m *metrics.Metrics) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var base Provider
	var err error

	switch cfg.Provider {
	case "openai":
		base, err = NewOpenAIProvider(cfg.APIKey, cfg.model(), cfg.BaseURL)
	case "openrouter":
		base, err = NewOpenRouterProvider(cfg.APIKey, cfg.model(), cfg.BaseURL)
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.APIKey, cfg.model(), cfg.BaseURL)
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.APIKey, cfg.model())
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	instrumented := WithInstrumentation(base, log, m)
	retried := WithRetry(instrumented, cfg.Retry)
	return WithTimeout(retried, cfg.Timeout), nil
}

// Unconfigured is a Provider that fails every call with the configuration error.
// It lets the service boot without credentials and report the problem per request.
type Unconfigured struct {
	Err error
}

func (u Unconfigured) Generate(context.Context, Request) (*Response, error) {
	return nil, &ErrProviderUnavailable{Err: u.Err}
}

func (u Unconfigured) ModelID() string { return "unconfigured" }
