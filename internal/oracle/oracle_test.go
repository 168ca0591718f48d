package oracle

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trivia-service/internal/domain"
	"trivia-service/internal/llm"
	"trivia-service/internal/metrics"
)

func newTestClient(responses ...llm.MockResponse) (*Client, *llm.MockProvider) {
	mock := llm.NewMockProvider(responses...)
	return New(mock, zerolog.Nop(), metrics.New()), mock
}

func TestRequestQuestionBuildsPrompt(t *testing.T) {
	c, mock := newTestClient(llm.MockResponse{
		Content: `{"question":"What is a slice?","expectedAnswer":"A view over an array","hint":null}`,
	})

	q, err := c.RequestQuestion(context.Background(), domain.QuestionRequest{
		Topic: domain.TopicConfig{
			Name:        "Go",
			Description: "The Go language",
			Context:     "backend course",
			FocusAreas:  []string{"slices", "maps"},
		},
		Difficulty: domain.DifficultyMedium,
		Ordinal:    3,
		Total:      5,
		Asked:      []string{"What is a goroutine?", "What is a channel?"},
	})
	require.NoError(t, err)
	assert.Equal(t, "What is a slice?", q.Question)
	assert.Equal(t, "A view over an array", q.ExpectedAnswer)
	assert.Empty(t, q.Hint)
	assert.Equal(t, domain.DifficultyMedium, q.Difficulty)

	require.Len(t, mock.Calls, 1)
	call := mock.Calls[0]
	assert.InDelta(t, 0.8, call.Temperature, 1e-9)
	assert.Equal(t, 500, call.MaxTokens)
	prompt := call.Prompt
	for _, want := range []string{
		"TOPIC: Go",
		"CONTEXT: backend course",
		"FOCUS AREAS: slices, maps",
		"DIFFICULTY: medium",
		"QUESTION NUMBER: 3 of 5",
		"1. What is a goroutine?",
		"2. What is a channel?",
		"one that requires analysis",
	} {
		assert.Contains(t, prompt, want)
	}
}

func TestRequestQuestionMalformedUsesPlaceholders(t *testing.T) {
	c, _ := newTestClient(llm.MockResponse{Content: ""})

	q, err := c.RequestQuestion(context.Background(), domain.QuestionRequest{
		Topic:      domain.TopicConfig{Name: "x", Description: "y"},
		Difficulty: domain.DifficultyEasy,
		Ordinal:    1,
		Total:      1,
	})
	require.NoError(t, err)
	assert.Equal(t, questionPlaceholder, q.Question)
	assert.Equal(t, answerPlaceholder, q.ExpectedAnswer)
	assert.Equal(t, domain.DifficultyEasy, q.Difficulty)
}

func TestRequestQuestionTransportFailure(t *testing.T) {
	c, _ := newTestClient(llm.MockResponse{Err: &llm.ErrProviderUnavailable{Err: errors.New("boom")}})

	_, err := c.RequestQuestion(context.Background(), domain.QuestionRequest{Ordinal: 1, Total: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrOracleUnavailable)
	var unavail *llm.ErrProviderUnavailable
	assert.ErrorAs(t, err, &unavail)
}

func TestRequestEvaluation(t *testing.T) {
	c, mock := newTestClient(llm.MockResponse{
		Content: `{"isCorrect": true, "score": 8, "accuracy": 85, "feedback": "Good"}`,
	})

	eval, err := c.RequestEvaluation(context.Background(), "Q?", "expected", "mine")
	require.NoError(t, err)
	assert.Equal(t, domain.Evaluation{
		IsCorrect:      true,
		Score:          8,
		Accuracy:       85,
		Feedback:       "Good",
		ExpectedAnswer: "expected",
	}, eval)

	call := mock.Calls[0]
	assert.InDelta(t, 0.3, call.Temperature, 1e-9)
	assert.Equal(t, 300, call.MaxTokens)
	assert.Contains(t, call.Prompt, "USER ANSWER: mine")
}

func TestRequestEvaluationMalformedFallsBack(t *testing.T) {
	c, _ := newTestClient(llm.MockResponse{Content: "Looks right to me."})

	eval, err := c.RequestEvaluation(context.Background(), "Q?", "expected", "mine")
	require.NoError(t, err)
	assert.False(t, eval.IsCorrect)
	assert.Zero(t, eval.Score)
	assert.Zero(t, eval.Accuracy)
	assert.Equal(t, "expected", eval.ExpectedAnswer)
	assert.NotEmpty(t, eval.Feedback)
}

func TestRequestEvaluationTransportFailure(t *testing.T) {
	c, _ := newTestClient()

	_, err := c.RequestEvaluation(context.Background(), "Q?", "expected", "mine")
	assert.ErrorIs(t, err, domain.ErrOracleUnavailable)
}

func TestRequestFeedback(t *testing.T) {
	c, mock := newTestClient(llm.MockResponse{Content: "Well done, you..."})

	text, err := c.RequestFeedback(context.Background(), domain.FeedbackRequest{
		Topic:            domain.TopicConfig{Name: "Go"},
		TotalQuestions:   2,
		CorrectAnswers:   1,
		IncorrectAnswers: 1,
		AverageAccuracy:  60,
		TotalScore:       12,
		MaxScore:         20,
		Answers: []domain.AnswerRecord{
			{Question: "Q1", UserAnswer: strings.Repeat("a", 300), IsCorrect: true, Score: 9, Accuracy: 90},
			{Question: "Q2", UserAnswer: "dunno", Score: 3, Accuracy: 30},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Well done, you...", text)

	prompt := mock.Calls[0].Prompt
	assert.Contains(t, prompt, "Total score: 12/20 points (60%)")
	assert.Contains(t, prompt, strings.Repeat("a", 200)+"...")
	assert.InDelta(t, 0.7, mock.Calls[0].Temperature, 1e-9)
	assert.Equal(t, 800, mock.Calls[0].MaxTokens)
}

func TestConfigured(t *testing.T) {
	c, _ := newTestClient()
	assert.True(t, c.Configured())

	unconfigured := New(llm.Unconfigured{Err: errors.New("no key")}, zerolog.Nop(), nil)
	assert.False(t, unconfigured.Configured())
}
