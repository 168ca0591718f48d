package http

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trivia-service/internal/llm"
)

func TestStartCreatesSession(t *testing.T) {
	h := newHarness(t, scripted(questionReply))

	rec := h.do(http.MethodPost, "/api/trivia/start", startBody(3))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.True(t, strings.HasPrefix(body["sessionId"].(string), "trivia_"))
	assert.EqualValues(t, 3, body["totalQuestions"])

	first := body["firstQuestion"].(map[string]any)
	assert.Equal(t, "What is 2+2?", first["question"])
	assert.Equal(t, "easy", first["difficulty"])
	assert.NotContains(t, first, "expectedAnswer")

	progress := body["progress"].(map[string]any)
	assert.EqualValues(t, 1, progress["current"])
	assert.EqualValues(t, 10, progress["maxScore"])
	assert.EqualValues(t, 0, progress["percentage"])
}

func TestStartValidation(t *testing.T) {
	provider := scripted()
	h := newHarness(t, provider)

	cases := map[string]struct {
		body  any
		field string
	}{
		"missing name":      {map[string]any{"topicConfig": map[string]any{"description": "d"}}, "name"},
		"blank description": {map[string]any{"topicConfig": map[string]any{"name": "n", "description": "  "}}, "description"},
		"too many":          {startBody(11), "totalQuestions"},
		"zero":              {startBody(0), "totalQuestions"},
		"difficulty": {map[string]any{
			"topicConfig": map[string]any{"name": "n", "description": "d", "difficulty": "extreme"},
		}, "difficulty"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := h.do(http.MethodPost, "/api/trivia/start", tc.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, string(ErrValidation), body["code"])
			assert.Contains(t, body["fields"], tc.field)
		})
	}
	assert.Zero(t, provider.CallCount(), "validation must not reach the oracle")
}

func TestStartOracleFailure(t *testing.T) {
	h := newHarness(t, llm.NewMockProvider(llm.MockResponse{Err: &llm.ErrProviderUnavailable{Err: fmt.Errorf("boom")}}))

	rec := h.do(http.MethodPost, "/api/trivia/start", startBody(3))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, string(ErrOracleUnavailable), decode(t, rec)["code"])
}

func TestAnswerAndQuestionStatusMapping(t *testing.T) {
	h := newHarness(t, scripted(questionReply, evaluationReply, questionReply))

	start := decode(t, h.do(http.MethodPost, "/api/trivia/start", startBody(2)))
	id := start["sessionId"].(string)

	rec := h.do(http.MethodPost, "/api/trivia/answer/"+id, map[string]any{"userAnswer": "   "})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(ErrInvalidAnswer), decode(t, rec)["code"])

	rec = h.do(http.MethodPost, "/api/trivia/answer/unknown", map[string]any{"userAnswer": "4"})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(http.MethodPost, "/api/trivia/answer/"+id, map[string]any{"userAnswer": "4"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	answer := decode(t, rec)
	eval := answer["evaluation"].(map[string]any)
	assert.Equal(t, true, eval["isCorrect"])
	assert.EqualValues(t, 9, eval["score"])
	assert.Equal(t, "4", eval["expectedAnswer"])
	assert.Nil(t, answer["nextQuestion"])
	assert.Equal(t, false, answer["isComplete"])

	rec = h.do(http.MethodPost, "/api/trivia/answer/"+id, map[string]any{"userAnswer": "4"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(ErrNoPendingQuestion), decode(t, rec)["code"])

	rec = h.do(http.MethodGet, "/api/trivia/results/"+id, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	notDone := decode(t, rec)
	assert.Equal(t, string(ErrSessionNotComplete), notDone["code"])
	assert.EqualValues(t, 9, notDone["progress"].(map[string]any)["score"])

	rec = h.do(http.MethodGet, "/api/trivia/next-question/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	next := decode(t, rec)
	assert.EqualValues(t, 2, next["questionNumber"])
	assert.EqualValues(t, 20, next["progress"].(map[string]any)["maxScore"])

	rec = h.do(http.MethodGet, "/api/trivia/next-question/"+id, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(ErrQuestionPending), decode(t, rec)["code"])
}

func TestResultsOnceThenNotFound(t *testing.T) {
	h := newHarness(t, scripted(questionReply, evaluationReply, feedbackReply))

	body := startBody(1)
	body["userId"] = "u1"
	id := decode(t, h.do(http.MethodPost, "/api/trivia/start", body))["sessionId"].(string)
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/api/trivia/answer/"+id, map[string]any{"userAnswer": "4"}).Code)

	rec := h.do(http.MethodGet, "/api/trivia/next-question/"+id, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(ErrAlreadyComplete), decode(t, rec)["code"])

	rec = h.do(http.MethodGet, "/api/trivia/results/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	results := decode(t, rec)
	assert.EqualValues(t, 90, results["percentage"])
	assert.Equal(t, feedbackReply, results["summary"].(map[string]any)["personalizedFeedback"])

	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/trivia/results/"+id, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/trivia/progress/"+id, nil).Code)

	rec = h.do(http.MethodGet, "/api/trivia/stats/u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode(t, rec)
	assert.EqualValues(t, 1, stats["totalAttempts"])
	assert.EqualValues(t, 90, stats["averages"].(map[string]any)["score"])
}

func TestCancelSession(t *testing.T) {
	h := newHarness(t, scripted(questionReply))
	id := decode(t, h.do(http.MethodPost, "/api/trivia/start", startBody(3)))["sessionId"].(string)

	rec := h.do(http.MethodGet, "/api/trivia/progress/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["isComplete"])

	rec = h.do(http.MethodDelete, "/api/trivia/session/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, id, body["sessionId"])
	assert.NotEmpty(t, body["message"])

	assert.Equal(t, http.StatusNotFound, h.do(http.MethodDelete, "/api/trivia/session/"+id, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/trivia/progress/"+id, nil).Code)
}

func TestConcurrentAnswerIsRejectedWithConflict(t *testing.T) {
	gated := newGatedProvider()
	h := newHarness(t, gated)

	gated.replies <- questionReply
	id := decode(t, h.do(http.MethodPost, "/api/trivia/start", startBody(2)))["sessionId"].(string)
	<-gated.entered

	var wg sync.WaitGroup
	var first *httptest.ResponseRecorder
	wg.Add(1)
	go func() {
		defer wg.Done()
		first = h.do(http.MethodPost, "/api/trivia/answer/"+id, map[string]any{"userAnswer": "4"})
	}()
	<-gated.entered

	rec := h.do(http.MethodPost, "/api/trivia/answer/"+id, map[string]any{"userAnswer": "5"})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(ErrSessionBusy), decode(t, rec)["code"])

	gated.replies <- evaluationReply
	wg.Wait()
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())

	progress := decode(t, h.do(http.MethodGet, "/api/trivia/progress/"+id, nil))["progress"].(map[string]any)
	assert.EqualValues(t, 9, progress["score"])
}

func TestHealthMetricsAndRequestID(t *testing.T) {
	h := newHarness(t, scripted(questionReply))
	require.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/api/trivia/start", startBody(1)).Code)

	rec := h.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	health := decode(t, rec)
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, true, health["oracleConfigured"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = h.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "trivia_sessions_started_total 1")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec = httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}

func TestUnconfiguredOracleReportedByHealth(t *testing.T) {
	h := newHarness(t, llm.Unconfigured{Err: fmt.Errorf("no api key")})

	assert.Equal(t, false, decode(t, h.do(http.MethodGet, "/health", nil))["oracleConfigured"])

	rec := h.do(http.MethodPost, "/api/trivia/start", startBody(1))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, string(ErrOracleUnavailable), decode(t, rec)["code"])
}
