package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"trivia-service/internal/domain"
	"trivia-service/internal/metrics"
)

const (
	DefaultTotalQuestions = 5
	MinTotalQuestions     = 1
	MaxTotalQuestions     = 10
)

// SessionStore abstracts where live sessions are kept (in-memory, Redis-backed, etc).
type SessionStore interface {
	// Add registers a new session.
	Add(session *Session) error
	Get(id string) (*Session, bool)
	// Remove deletes id and reports whether it was present.
	Remove(id string) bool
	// Sweep removes and returns the sessions that expired as of now. Callers close them.
	Sweep(now time.Time) []*Session
	Len() int
}

// Oracle authors and grades questions.
type Oracle interface {
	RequestQuestion(ctx context.Context, req domain.QuestionRequest) (domain.Question, error)
	RequestEvaluation(ctx context.Context, question, expectedAnswer, userAnswer string) (domain.Evaluation, error)
	RequestFeedback(ctx context.Context, req domain.FeedbackRequest) (string, error)
}

// AttemptRecorder archives completed runs of known users.
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, attempt domain.Attempt) error
}

// StatsLoader computes a user's stats from the archive.
type StatsLoader interface {
	LoadStats(ctx context.Context, userID string) (domain.Stats, error)
}

// StatsRepository serves (possibly cached) user stats.
type StatsRepository interface {
	GetStats(ctx context.Context, userID string) (domain.Stats, error)
	Invalidate(ctx context.Context, userID string) error
}

// StartRequest is the input of Start.
type StartRequest struct {
	Topic          domain.TopicConfig
	TotalQuestions *int
	UserID         string
}

// StartResult is returned by Start.
type StartResult struct {
	SessionID      string              `json:"sessionId"`
	Topic          domain.TopicConfig  `json:"topic"`
	TotalQuestions int                 `json:"totalQuestions"`
	FirstQuestion  domain.QuestionView `json:"firstQuestion"`
	Progress       domain.Progress     `json:"progress"`
}

// AnswerResult is returned by SubmitAnswer. NextQuestion is always nil: the next
// question is fetched separately.
type AnswerResult struct {
	Evaluation   domain.Evaluation    `json:"evaluation"`
	Progress     domain.Progress      `json:"progress"`
	IsComplete   bool                 `json:"isComplete"`
	NextQuestion *domain.QuestionView `json:"nextQuestion"`
}

// NextQuestionResult is returned by NextQuestion.
type NextQuestionResult struct {
	domain.QuestionView
	Progress domain.Progress `json:"progress"`
}

// ProgressResult is returned by Progress.
type ProgressResult struct {
	SessionID  string          `json:"sessionId"`
	Progress   domain.Progress `json:"progress"`
	IsComplete bool            `json:"isComplete"`
}

// TriviaService contains the trivia use cases.
type TriviaService struct {
	sessions SessionStore
	oracle   Oracle
	attempts AttemptRecorder
	stats    StatsRepository
	log      zerolog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
	newID    func() string
	feedback bool
}

// Option configures a TriviaService.
type Option func(*TriviaService)

// WithClock overrides time.Now (tests).
func WithClock(now func() time.Time) Option {
	return func(s *TriviaService) { s.now = now }
}

// WithAttemptRecorder archives completed runs that carry a user id.
func WithAttemptRecorder(r AttemptRecorder) Option {
	return func(s *TriviaService) { s.attempts = r }
}

// WithStatsRepository enables the Stats use case.
func WithStatsRepository(r StatsRepository) Option {
	return func(s *TriviaService) { s.stats = r }
}

func WithLogger(log zerolog.Logger) Option {
	return func(s *TriviaService) { s.log = log.With().Str("component", "trivia").Logger() }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *TriviaService) { s.metrics = m }
}

// WithPersonalizedFeedback toggles the end-of-run narrative (on by default).
func WithPersonalizedFeedback(enabled bool) Option {
	return func(s *TriviaService) { s.feedback = enabled }
}

// WithIDGenerator overrides session id generation (tests).
func WithIDGenerator(newID func() string) Option {
	return func(s *TriviaService) { s.newID = newID }
}

func NewTriviaService(store SessionStore, oracle Oracle, opts ...Option) *TriviaService {
	s := &TriviaService{
		sessions: store,
		oracle:   oracle,
		log:      zerolog.Nop(),
		now:      time.Now,
		feedback: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.newID == nil {
		s.newID = func() string { return NewSessionID(s.now()) }
	}
	return s
}

// NewSessionID returns trivia_<unix millis>_<12 random hex chars>.
func NewSessionID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("trivia_%d_%s", now.UnixMilli(), suffix)
}

// Start validates the request, generates the first question and registers the session.
// Nothing is registered when the first question cannot be generated.
func (s *TriviaService) Start(ctx context.Context, req StartRequest) (StartResult, error) {
	topic, total, err := validateStart(req)
	if err != nil {
		return StartResult{}, err
	}

	session := newSessionWithClock(s.newID(), strings.TrimSpace(req.UserID), topic, total, s.now)
	if err := session.acquire(); err != nil {
		return StartResult{}, err
	}
	defer session.release()

	first, err := session.generateNextQuestion(ctx, s.oracle)
	if err != nil {
		session.Close()
		return StartResult{}, fmt.Errorf("generating first question: %w", err)
	}
	if err := s.sessions.Add(session); err != nil {
		session.Close()
		return StartResult{}, fmt.Errorf("registering session: %w", err)
	}

	s.metrics.SessionStarted()
	s.log.Info().
		Str("session_id", session.id).
		Str("topic", topic.Name).
		Int("total_questions", total).
		Msg("session created")

	return StartResult{
		SessionID:      session.id,
		Topic:          topic,
		TotalQuestions: total,
		FirstQuestion:  first,
		Progress:       session.Progress(),
	}, nil
}

func validateStart(req StartRequest) (domain.TopicConfig, int, error) {
	topic := req.Topic
	topic.Name = strings.TrimSpace(topic.Name)
	topic.Description = strings.TrimSpace(topic.Description)

	if topic.Name == "" {
		return topic, 0, fmt.Errorf("%w: topicConfig.name is required", domain.ErrConfigurationInvalid)
	}
	if topic.Description == "" {
		return topic, 0, fmt.Errorf("%w: topicConfig.description is required", domain.ErrConfigurationInvalid)
	}
	if topic.Difficulty != "" && !topic.Difficulty.Valid() {
		return topic, 0, fmt.Errorf("%w: difficulty must be easy, medium or hard", domain.ErrConfigurationInvalid)
	}

	total := DefaultTotalQuestions
	if req.TotalQuestions != nil {
		total = *req.TotalQuestions
	}
	if total < MinTotalQuestions || total > MaxTotalQuestions {
		return topic, 0, fmt.Errorf("%w: totalQuestions must be between %d and %d",
			domain.ErrConfigurationInvalid, MinTotalQuestions, MaxTotalQuestions)
	}
	return topic, total, nil
}

// SubmitAnswer grades the answer to the pending question.
func (s *TriviaService) SubmitAnswer(ctx context.Context, sessionID, userAnswer string) (AnswerResult, error) {
	if strings.TrimSpace(userAnswer) == "" {
		return AnswerResult{}, domain.ErrInvalidAnswer
	}
	session, err := s.lockSession(sessionID)
	if err != nil {
		return AnswerResult{}, err
	}
	defer session.release()

	out, err := session.evaluate(ctx, s.oracle, userAnswer)
	if err != nil {
		return AnswerResult{}, err
	}

	s.metrics.AnswerEvaluated(out.result.IsCorrect)
	s.log.Info().
		Str("session_id", sessionID).
		Int("question", out.progress.Current).
		Int("score", out.result.Score).
		Bool("correct", out.result.IsCorrect).
		Msg("answer evaluated")

	return AnswerResult{
		Evaluation: out.result,
		Progress:   out.progress,
		IsComplete: out.complete,
	}, nil
}

// NextQuestion generates the next question of the session.
func (s *TriviaService) NextQuestion(ctx context.Context, sessionID string) (NextQuestionResult, error) {
	session, err := s.lockSession(sessionID)
	if err != nil {
		return NextQuestionResult{}, err
	}
	defer session.release()

	view, err := session.generateNextQuestion(ctx, s.oracle)
	if err != nil {
		return NextQuestionResult{}, err
	}
	s.log.Info().
		Str("session_id", sessionID).
		Int("question", view.QuestionNumber).
		Str("difficulty", string(view.Difficulty)).
		Msg("question generated")

	return NextQuestionResult{QuestionView: view, Progress: session.Progress()}, nil
}

// Results hands out the report of a completed session exactly once, then forgets the session.
func (s *TriviaService) Results(ctx context.Context, sessionID string) (domain.Results, error) {
	session, err := s.lockSession(sessionID)
	if err != nil {
		return domain.Results{}, err
	}
	defer session.release()

	res, err := session.results()
	if err != nil {
		return domain.Results{}, err
	}
	if s.feedback {
		res.Summary.PersonalizedFeedback = s.personalizedFeedback(ctx, session, res)
	}

	if !s.sessions.Remove(sessionID) {
		return domain.Results{}, domain.ErrSessionNotFound
	}
	session.Close()
	s.metrics.SessionEnded("completed")
	s.log.Info().
		Str("session_id", sessionID).
		Int("percentage", res.Percentage).
		Int("duration", res.Duration).
		Msg("session completed")

	if session.userID != "" {
		s.archive(ctx, session, res)
	}
	return res, nil
}

func (s *TriviaService) personalizedFeedback(ctx context.Context, session *Session, res domain.Results) string {
	callCtx, done := session.bind(ctx)
	defer done()

	text, err := s.oracle.RequestFeedback(callCtx, domain.FeedbackRequest{
		Topic:            res.Topic,
		TotalQuestions:   res.TotalQuestions,
		CorrectAnswers:   res.Summary.CorrectAnswers,
		IncorrectAnswers: res.Summary.IncorrectAnswers,
		AverageAccuracy:  res.Summary.AverageAccuracy,
		TotalScore:       res.TotalScore,
		MaxScore:         res.MaxScore,
		Answers:          res.Answers,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("session_id", session.id).Msg("personalized feedback unavailable, using fallback")
		return fallbackFeedback(res.Topic.Name, res.TotalQuestions, res.Summary)
	}
	return text
}

// archive records the attempt and drops the user's cached stats. Failures are logged only.
func (s *TriviaService) archive(ctx context.Context, session *Session, res domain.Results) {
	if s.attempts == nil {
		return
	}
	difficulty := res.Topic.Difficulty
	if difficulty == "" {
		difficulty = session.lastDifficulty()
	}
	attempt := domain.Attempt{
		ID:          uuid.NewString(),
		SessionID:   res.SessionID,
		UserID:      session.userID,
		Category:    res.Topic.Name,
		Difficulty:  difficulty,
		Score:       res.TotalScore,
		MaxScore:    res.MaxScore,
		Percentage:  res.Percentage,
		TotalTime:   res.Duration,
		Precision:   res.Summary.AverageAccuracy,
		AttemptedAt: res.EndTime,
		Results:     res,
	}
	if err := s.attempts.RecordAttempt(ctx, attempt); err != nil {
		s.log.Error().Err(err).Str("session_id", res.SessionID).Str("user_id", session.userID).Msg("failed to archive attempt")
		return
	}
	if s.stats != nil {
		if err := s.stats.Invalidate(ctx, session.userID); err != nil {
			s.log.Warn().Err(err).Str("user_id", session.userID).Msg("failed to invalidate stats cache")
		}
	}
}

// Progress reports the counters of a live session without mutating it.
func (s *TriviaService) Progress(_ context.Context, sessionID string) (ProgressResult, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return ProgressResult{}, domain.ErrSessionNotFound
	}
	return ProgressResult{
		SessionID:  sessionID,
		Progress:   session.Progress(),
		IsComplete: session.IsComplete(),
	}, nil
}

// Cancel forgets the session regardless of its state and aborts its in-flight oracle call.
func (s *TriviaService) Cancel(_ context.Context, sessionID string) error {
	session, ok := s.sessions.Get(sessionID)
	if !ok || !s.sessions.Remove(sessionID) {
		return domain.ErrSessionNotFound
	}
	session.Close()
	s.metrics.SessionEnded("cancelled")
	s.log.Info().Str("session_id", sessionID).Msg("session cancelled")
	return nil
}

// Stats returns the user's archived performance; empty stats when no archive is configured.
func (s *TriviaService) Stats(ctx context.Context, userID string) (domain.Stats, error) {
	if s.stats == nil {
		return domain.SummarizeAttempts(userID, nil), nil
	}
	stats, err := s.stats.GetStats(ctx, userID)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("loading stats for %s: %w", userID, err)
	}
	return stats, nil
}

// Sweep evicts idle sessions and returns how many were removed.
func (s *TriviaService) Sweep() int {
	evicted := s.sessions.Sweep(s.now())
	for _, session := range evicted {
		session.Close()
		s.metrics.SessionEnded("evicted")
		s.log.Info().Str("session_id", session.id).Msg("idle session evicted")
	}
	return len(evicted)
}

// ActiveSessions is the number of live sessions.
func (s *TriviaService) ActiveSessions() int {
	return s.sessions.Len()
}

func (s *TriviaService) lockSession(sessionID string) (*Session, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if err := session.acquire(); err != nil {
		return nil, err
	}
	return session, nil
}

// IsClientError reports whether err is caused by the request rather than the service.
func IsClientError(err error) bool {
	for _, target := range []error{
		domain.ErrConfigurationInvalid,
		domain.ErrInvalidAnswer,
		domain.ErrSessionNotFound,
		domain.ErrAlreadyComplete,
		domain.ErrSessionNotComplete,
		domain.ErrQuestionPending,
		domain.ErrNoPendingQuestion,
		domain.ErrSessionBusy,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
