package app

import (
	"context"
	"math"
	"slices"
	"sync"
	"time"

	"trivia-service/internal/domain"
)

// Session is one live trivia run. Mutating operations are serialized by op and never
// queue: a second caller gets domain.ErrSessionBusy. State reads take mu only, so they
// never wait behind an in-flight oracle call.
type Session struct {
	id        string
	userID    string
	topic     domain.TopicConfig
	total     int
	startTime time.Time
	now       func() time.Time

	op sync.Mutex

	mu           sync.RWMutex
	current      int
	answers      []domain.AnswerRecord
	asked        []string
	pending      *domain.Question
	lastActivity time.Time

	// life ends when the session is cancelled or evicted; oracle calls are bound to it.
	life   context.Context
	cancel context.CancelFunc
}

// NewSession is exported for infrastructure layers that need to seed sessions.
func NewSession(id, userID string, topic domain.TopicConfig, total int) *Session {
	return newSessionWithClock(id, userID, topic, total, time.Now)
}

// NewSessionWithClock is test-only for deterministic timestamps.
func NewSessionWithClock(id, userID string, topic domain.TopicConfig, total int, now func() time.Time) *Session {
	return newSessionWithClock(id, userID, topic, total, now)
}

func newSessionWithClock(id, userID string, topic domain.TopicConfig, total int, now func() time.Time) *Session {
	life, cancel := context.WithCancel(context.Background())
	started := now()
	return &Session{
		id:           id,
		userID:       userID,
		topic:        topic,
		total:        total,
		startTime:    started,
		now:          now,
		lastActivity: started,
		life:         life,
		cancel:       cancel,
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) UserID() string { return s.userID }

// LastActivity is when the session last committed a change (or was created).
func (s *Session) LastActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActivity
}

// Close ends the session's lifetime and aborts any oracle call it has in flight.
// Closing twice is harmless.
func (s *Session) Close() {
	s.cancel()
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	return s.life.Err() != nil
}

func (s *Session) acquire() error {
	if !s.op.TryLock() {
		return domain.ErrSessionBusy
	}
	return nil
}

func (s *Session) release() {
	s.op.Unlock()
}

// bind derives a context for an oracle call that is cancelled with either ctx or the session.
func (s *Session) bind(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.life, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// difficultyFor picks the difficulty of the ordinal-th question: the topic override,
// else 1-2 easy, 3-4 medium, 5+ hard.
func (s *Session) difficultyFor(ordinal int) domain.Difficulty {
	if s.topic.Difficulty != "" {
		return s.topic.Difficulty
	}
	switch {
	case ordinal <= 2:
		return domain.DifficultyEasy
	case ordinal <= 4:
		return domain.DifficultyMedium
	default:
		return domain.DifficultyHard
	}
}

// generateNextQuestion asks the oracle for the next question and commits it only once
// the oracle has answered. The caller must hold op.
func (s *Session) generateNextQuestion(ctx context.Context, oracle Oracle) (domain.QuestionView, error) {
	s.mu.RLock()
	switch {
	case s.Closed():
		s.mu.RUnlock()
		return domain.QuestionView{}, domain.ErrSessionNotFound
	case s.pending != nil:
		s.mu.RUnlock()
		return domain.QuestionView{}, domain.ErrQuestionPending
	case s.current >= s.total:
		s.mu.RUnlock()
		return domain.QuestionView{}, domain.ErrAlreadyComplete
	}
	ordinal := s.current + 1
	asked := slices.Clone(s.asked)
	s.mu.RUnlock()

	callCtx, done := s.bind(ctx)
	defer done()

	q, err := oracle.RequestQuestion(callCtx, domain.QuestionRequest{
		Topic:      s.topic,
		Difficulty: s.difficultyFor(ordinal),
		Ordinal:    ordinal,
		Total:      s.total,
		Asked:      asked,
	})
	if err != nil {
		if s.Closed() {
			return domain.QuestionView{}, domain.ErrSessionNotFound
		}
		return domain.QuestionView{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Closed() {
		return domain.QuestionView{}, domain.ErrSessionNotFound
	}
	s.current = ordinal
	s.pending = &q
	s.asked = append(s.asked, q.Question)
	s.lastActivity = s.now()
	return q.View(ordinal), nil
}

// evaluation is the outcome of grading the pending question.
type evaluation struct {
	result   domain.Evaluation
	progress domain.Progress
	complete bool
}

// evaluate grades userAnswer against the pending question, then appends it to the ledger
// and clears the pending question. The caller must hold op.
func (s *Session) evaluate(ctx context.Context, oracle Oracle, userAnswer string) (evaluation, error) {
	s.mu.RLock()
	if s.Closed() {
		s.mu.RUnlock()
		return evaluation{}, domain.ErrSessionNotFound
	}
	if s.pending == nil {
		s.mu.RUnlock()
		return evaluation{}, domain.ErrNoPendingQuestion
	}
	q := *s.pending
	number := s.current
	s.mu.RUnlock()

	callCtx, done := s.bind(ctx)
	defer done()

	eval, err := oracle.RequestEvaluation(callCtx, q.Question, q.ExpectedAnswer, userAnswer)
	if err != nil {
		if s.Closed() {
			return evaluation{}, domain.ErrSessionNotFound
		}
		return evaluation{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Closed() {
		return evaluation{}, domain.ErrSessionNotFound
	}
	now := s.now()
	s.answers = append(s.answers, domain.AnswerRecord{
		QuestionNumber: number,
		Question:       q.Question,
		UserAnswer:     userAnswer,
		ExpectedAnswer: q.ExpectedAnswer,
		IsCorrect:      eval.IsCorrect,
		Score:          eval.Score,
		Accuracy:       eval.Accuracy,
		Feedback:       eval.Feedback,
		Timestamp:      now,
	})
	s.pending = nil
	s.lastActivity = now

	return evaluation{
		result:   eval,
		progress: s.progressLocked(),
		complete: s.completeLocked(),
	}, nil
}

// Progress derives the current counters from the ledger.
func (s *Session) Progress() domain.Progress {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.progressLocked()
}

// IsComplete reports whether every question has been generated and answered.
func (s *Session) IsComplete() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.completeLocked()
}

func (s *Session) progressLocked() domain.Progress {
	score := 0
	for _, a := range s.answers {
		score += a.Score
	}
	maxScore := s.current * 10
	return domain.Progress{
		Current:    s.current,
		Total:      s.total,
		Score:      score,
		MaxScore:   maxScore,
		Percentage: percentage(score, maxScore),
	}
}

func (s *Session) completeLocked() bool {
	return s.current == s.total && len(s.answers) == s.total
}

// results builds the end-of-run report without personalized feedback.
// Before completion it fails with a *domain.ProgressError.
func (s *Session) results() (domain.Results, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.completeLocked() {
		return domain.Results{}, &domain.ProgressError{
			Err:      domain.ErrSessionNotComplete,
			Progress: s.progressLocked(),
		}
	}

	end := s.now()
	answers := slices.Clone(s.answers)

	totalScore, correct, accuracy := 0, 0, 0
	for _, a := range answers {
		totalScore += a.Score
		accuracy += a.Accuracy
		if a.IsCorrect {
			correct++
		}
	}
	avgAccuracy := 0
	if len(answers) > 0 {
		avgAccuracy = int(math.Round(float64(accuracy) / float64(len(answers))))
	}
	maxScore := s.total * 10

	return domain.Results{
		SessionID:      s.id,
		Topic:          s.topic,
		StartTime:      s.startTime,
		EndTime:        end,
		Duration:       int(end.Sub(s.startTime) / time.Second),
		TotalQuestions: s.total,
		TotalScore:     totalScore,
		MaxScore:       maxScore,
		Percentage:     percentage(totalScore, maxScore),
		Answers:        answers,
		Summary: domain.Summary{
			CorrectAnswers:   correct,
			IncorrectAnswers: len(answers) - correct,
			AverageAccuracy:  avgAccuracy,
			StrongAreas:      extractAreas(answers, func(a domain.AnswerRecord) bool { return a.Score >= 8 }),
			WeakAreas:        extractAreas(answers, func(a domain.AnswerRecord) bool { return a.Score < 5 }),
		},
	}, nil
}

// lastDifficulty is the difficulty of the most recent question, used to file attempts.
func (s *Session) lastDifficulty() domain.Difficulty {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == 0 {
		return s.difficultyFor(1)
	}
	return s.difficultyFor(s.current)
}

func percentage(score, maxScore int) int {
	if maxScore <= 0 {
		return 0
	}
	return int(math.Round(float64(score) / float64(maxScore) * 100))
}
