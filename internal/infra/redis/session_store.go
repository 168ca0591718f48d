package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"trivia-service/internal/app"
)

const opTimeout = 2 * time.Second

// SessionStore is a Redis-aware implementation of app.SessionStore.
// Notes:
//   - Live engines stay in a local map: a session owns locks and an in-flight oracle
//     call, neither of which can be serialized.
//   - Redis holds a liveness key per session with the idle TTL. Every lookup refreshes
//     it; once the key expires the local engine is evicted on the next lookup or sweep.
//   - Redis errors are treated as "still alive" so an outage never drops live sessions.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration

	mu       sync.Mutex
	sessions map[string]*app.Session
	expired  []*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Add(session *app.Session) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := s.client.Set(ctx, s.key(session.ID()), "1", s.ttl).Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.sessions[session.ID()] = session
	s.mu.Unlock()
	return nil
}

func (s *SessionStore) Get(id string) (*app.Session, bool) {
	s.mu.Lock()
	session, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return nil, false
	}

	if s.alive(id, true) {
		return session, true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.sessions[id]; ok && current == session {
		delete(s.sessions, id)
		s.expired = append(s.expired, session)
	}
	return nil, false
}

func (s *SessionStore) Remove(id string) bool {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	// best-effort: an orphaned key expires on its own
	_ = s.client.Del(ctx, s.key(id)).Err()
	return ok
}

// Sweep returns the sessions whose liveness key is gone, including those already
// dropped by Get since the previous sweep.
func (s *SessionStore) Sweep(_ time.Time) []*app.Session {
	s.mu.Lock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	var dead []string
	for _, id := range ids {
		if !s.alive(id, false) {
			dead = append(dead, id)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := s.expired
	s.expired = nil
	for _, id := range dead {
		if session, ok := s.sessions[id]; ok {
			delete(s.sessions, id)
			evicted = append(evicted, session)
		}
	}
	return evicted
}

func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// alive reports whether the liveness key of id still exists, extending it when touch is set.
func (s *SessionStore) alive(id string, touch bool) bool {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if touch && s.ttl > 0 {
		ok, err := s.client.Expire(ctx, s.key(id), s.ttl).Result()
		return err != nil || ok
	}
	n, err := s.client.Exists(ctx, s.key(id)).Result()
	return err != nil || n > 0
}

func (s *SessionStore) key(id string) string {
	return "trivia:session:" + id
}
