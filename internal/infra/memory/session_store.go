package memory

import (
	"sync"
	"time"

	"trivia-service/internal/app"
)

// SessionStore is an in-memory implementation of app.SessionStore.
// Sessions idle for longer than idleTTL are returned by Sweep; an idleTTL of 0 keeps
// sessions until they are removed explicitly.
type SessionStore struct {
	idleTTL  time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(idleTTL time.Duration) *SessionStore {
	return &SessionStore{
		idleTTL:  idleTTL,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Add(session *app.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID()] = session
	return nil
}

func (s *SessionStore) Get(id string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	return session, ok
}

func (s *SessionStore) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

func (s *SessionStore) Sweep(now time.Time) []*app.Session {
	if s.idleTTL <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var evicted []*app.Session
	for id, session := range s.sessions {
		if now.Sub(session.LastActivity()) >= s.idleTTL {
			delete(s.sessions, id)
			evicted = append(evicted, session)
		}
	}
	return evicted
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
