package memory

import (
	"context"
	"sync"

	"trivia-service/internal/domain"
)

// AttemptStore archives attempts in process memory. It backs stats when no database
// is configured; the archive is lost on restart.
type AttemptStore struct {
	mu       sync.RWMutex
	attempts map[string][]domain.Attempt
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{attempts: make(map[string][]domain.Attempt)}
}

func (s *AttemptStore) RecordAttempt(_ context.Context, attempt domain.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[attempt.UserID] = append(s.attempts[attempt.UserID], attempt)
	return nil
}

func (s *AttemptStore) LoadStats(_ context.Context, userID string) (domain.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.SummarizeAttempts(userID, s.attempts[userID]), nil
}
