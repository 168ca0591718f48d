package app_test

import (
	"context"
	"fmt"
	"sync"

	"trivia-service/internal/domain"
)

// fakeOracle scripts question texts and scores. When gate is set, evaluations block
// until the gate is closed or their context ends.
type fakeOracle struct {
	mu          sync.Mutex
	texts       []string
	scores      []int
	questionErr error
	evalErr     error
	feedback    string
	feedbackErr error

	gate    chan struct{}
	started chan struct{}

	requests  []domain.QuestionRequest
	evalCalls int
}

func (o *fakeOracle) RequestQuestion(_ context.Context, req domain.QuestionRequest) (domain.Question, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.questionErr != nil {
		return domain.Question{}, fmt.Errorf("%w: %w", domain.ErrOracleUnavailable, o.questionErr)
	}
	o.requests = append(o.requests, req)

	text := fmt.Sprintf("Question %d about %s", req.Ordinal, req.Topic.Name)
	if req.Ordinal <= len(o.texts) {
		text = o.texts[req.Ordinal-1]
	}
	return domain.Question{
		Question:       text,
		ExpectedAnswer: fmt.Sprintf("answer %d", req.Ordinal),
		Hint:           "think",
		Difficulty:     req.Difficulty,
	}, nil
}

func (o *fakeOracle) RequestEvaluation(ctx context.Context, _, expectedAnswer, _ string) (domain.Evaluation, error) {
	if o.started != nil {
		o.started <- struct{}{}
	}
	if o.gate != nil {
		select {
		case <-o.gate:
		case <-ctx.Done():
			return domain.Evaluation{}, fmt.Errorf("%w: %w", domain.ErrOracleUnavailable, ctx.Err())
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.evalErr != nil {
		return domain.Evaluation{}, fmt.Errorf("%w: %w", domain.ErrOracleUnavailable, o.evalErr)
	}
	score := 10
	if len(o.scores) > 0 {
		score = o.scores[o.evalCalls%len(o.scores)]
	}
	o.evalCalls++
	return domain.Evaluation{
		IsCorrect:      score >= 6,
		Score:          score,
		Accuracy:       score * 10,
		Feedback:       "ok",
		ExpectedAnswer: expectedAnswer,
	}, nil
}

func (o *fakeOracle) RequestFeedback(context.Context, domain.FeedbackRequest) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.feedbackErr != nil {
		return "", o.feedbackErr
	}
	return o.feedback, nil
}

func (o *fakeOracle) questionRequests() []domain.QuestionRequest {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]domain.QuestionRequest(nil), o.requests...)
}
