// Package oracle turns the chat-completion provider into the two judgements a trivia
// session needs: author a question, and grade an answer. Replies are parsed leniently;
// a malformed reply yields fallback values, only a failed call is an error.
package oracle

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"trivia-service/internal/domain"
	"trivia-service/internal/llm"
	"trivia-service/internal/metrics"
)

const (
	questionTemperature = 0.8
	questionMaxTokens   = 500

	evaluationTemperature = 0.3
	evaluationMaxTokens   = 300

	feedbackTemperature = 0.7
	feedbackMaxTokens   = 800
)

const (
	purposeQuestion   = "question"
	purposeEvaluation = "evaluation"
	purposeFeedback   = "feedback"
)

// Client is the oracle used by the trivia service.
type Client struct {
	provider llm.Provider
	log      zerolog.Logger
	metrics  *metrics.Metrics
}

// New wires a Client around provider. m may be nil.
func New(provider llm.Provider, log zerolog.Logger, m *metrics.Metrics) *Client {
	return &Client{
		provider: provider,
		log:      log.With().Str("component", "oracle").Logger(),
		metrics:  m,
	}
}

// RequestQuestion asks the provider for one open-ended question. The returned question
// always carries req.Difficulty.
func (c *Client) RequestQuestion(ctx context.Context, req domain.QuestionRequest) (domain.Question, error) {
	ctx = llm.WithPurpose(ctx, purposeQuestion)
	resp, err := c.provider.Generate(ctx, llm.UserPrompt(
		questionSystemPrompt,
		buildQuestionPrompt(req),
		questionTemperature,
		questionMaxTokens,
	))
	if err != nil {
		return domain.Question{}, fmt.Errorf("requesting question %d/%d: %w: %w", req.Ordinal, req.Total, domain.ErrOracleUnavailable, err)
	}

	q, ok := parseQuestion(resp.Content)
	if !ok {
		c.fallback(purposeQuestion, resp.Content)
	}
	q.Difficulty = req.Difficulty
	return q, nil
}

// RequestEvaluation grades userAnswer against expectedAnswer. The returned evaluation
// echoes expectedAnswer and has score in [0,10] and accuracy in [0,100].
func (c *Client) RequestEvaluation(ctx context.Context, question, expectedAnswer, userAnswer string) (domain.Evaluation, error) {
	ctx = llm.WithPurpose(ctx, purposeEvaluation)
	resp, err := c.provider.Generate(ctx, llm.UserPrompt(
		evaluationSystemPrompt,
		buildEvaluationPrompt(question, expectedAnswer, userAnswer),
		evaluationTemperature,
		evaluationMaxTokens,
	))
	if err != nil {
		return domain.Evaluation{}, fmt.Errorf("requesting evaluation: %w: %w", domain.ErrOracleUnavailable, err)
	}

	eval, perr := parseEvaluation(resp.Content)
	if perr != nil {
		c.fallback(purposeEvaluation, resp.Content)
		c.log.Debug().Err(perr).Msg("evaluation reply rejected")
		eval = fallbackEvaluation()
	}
	eval.ExpectedAnswer = expectedAnswer
	return eval, nil
}

// RequestFeedback writes the end-of-run narrative. Callers substitute their own text on error.
func (c *Client) RequestFeedback(ctx context.Context, req domain.FeedbackRequest) (string, error) {
	ctx = llm.WithPurpose(ctx, purposeFeedback)
	resp, err := c.provider.Generate(ctx, llm.UserPrompt(
		feedbackSystemPrompt,
		buildFeedbackPrompt(req),
		feedbackTemperature,
		feedbackMaxTokens,
	))
	if err != nil {
		return "", fmt.Errorf("requesting feedback: %w: %w", domain.ErrOracleUnavailable, err)
	}
	if resp.Content == "" {
		return "", fmt.Errorf("requesting feedback: %w: empty reply", domain.ErrOracleUnavailable)
	}
	return resp.Content, nil
}

// Configured reports whether a real provider sits behind the client.
func (c *Client) Configured() bool {
	_, unconfigured := c.provider.(llm.Unconfigured)
	return !unconfigured
}

func (c *Client) fallback(purpose, raw string) {
	c.metrics.OracleFallback(purpose)
	c.log.Warn().
		Str("purpose", purpose).
		Str("reply", truncate(raw, 200)).
		Msg("malformed oracle reply, using fallback values")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
