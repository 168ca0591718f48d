package llm

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"trivia-service/internal/metrics"
)

// InstrumentedProvider logs every LLM call and feeds the oracle metrics.
type InstrumentedProvider struct {
	inner   Provider
	log     zerolog.Logger
	metrics *metrics.Metrics
}

// WithInstrumentation wraps a Provider with structured logging and metrics.
// A nil *metrics.Metrics only logs.
func WithInstrumentation(p Provider, log zerolog.Logger, m *metrics.Metrics) Provider {
	return &InstrumentedProvider{inner: p, log: log, metrics: m}
}

func (l *InstrumentedProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	purpose := PurposeFrom(ctx)

	resp, err := l.inner.Generate(ctx, req)

	elapsed := time.Since(start)
	l.metrics.OracleRequest(purpose, elapsed, err)

	if err != nil {
		l.log.Warn().Err(err).
			Str("purpose", purpose).
			Str("model", l.inner.ModelID()).
			Dur("latency", elapsed).
			Msg("llm request failed")
		return nil, err
	}

	l.log.Debug().
		Str("purpose", purpose).
		Str("model", resp.Model).
		Int("input_tokens", resp.InputTokens).
		Int("output_tokens", resp.OutputTokens).
		Str("stop_reason", resp.StopReason).
		Dur("latency", elapsed).
		Msg("llm request")
	return resp, nil
}

func (l *InstrumentedProvider) ModelID() string {
	return l.inner.ModelID()
}
