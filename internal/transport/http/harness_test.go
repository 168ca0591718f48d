package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"trivia-service/internal/app"
	"trivia-service/internal/infra/memory"
	"trivia-service/internal/llm"
	"trivia-service/internal/metrics"
	"trivia-service/internal/oracle"
	"trivia-service/internal/validator"
)

const (
	questionReply   = `{"question":"What is 2+2?","expectedAnswer":"4","hint":"Count on your fingers"}`
	evaluationReply = `{"isCorrect":true,"score":9,"accuracy":90,"feedback":"Right."}`
	feedbackReply   = "Well done, keep practicing."
)

type harness struct {
	router   *gin.Engine
	provider llm.Provider
	metrics  *metrics.Metrics
}

func newHarness(t *testing.T, provider llm.Provider) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validator.Setup()

	m := metrics.New()
	client := oracle.New(provider, zerolog.Nop(), m)
	attempts := memory.NewAttemptStore()
	service := app.NewTriviaService(memory.NewSessionStore(0), client,
		app.WithMetrics(m),
		app.WithAttemptRecorder(attempts),
		app.WithStatsRepository(memory.NewStatsRepository(attempts, 0)),
	)
	router := NewRouter(RouterConfig{}, NewHandler(service, zerolog.Nop(), client.Configured()),
		NewWSHandler(service, zerolog.Nop()), m, zerolog.Nop())
	return &harness{router: router, provider: provider, metrics: m}
}

func (h *harness) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func startBody(total int) map[string]any {
	return map[string]any{
		"topicConfig":    map[string]any{"name": "Math", "description": "basic arithmetic"},
		"totalQuestions": total,
	}
}

func scripted(replies ...string) *llm.MockProvider {
	p := llm.NewMockProvider()
	for _, r := range replies {
		p.AddResponse(llm.MockResponse{Content: r})
	}
	return p
}

// gatedProvider blocks every call until the test feeds it a reply.
type gatedProvider struct {
	entered chan struct{}
	replies chan string
}

func newGatedProvider() *gatedProvider {
	return &gatedProvider{entered: make(chan struct{}, 4), replies: make(chan string, 4)}
}

func (p *gatedProvider) Generate(ctx context.Context, _ llm.Request) (*llm.Response, error) {
	p.entered <- struct{}{}
	select {
	case reply := <-p.replies:
		return &llm.Response{Content: reply}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *gatedProvider) ModelID() string { return "gated" }
