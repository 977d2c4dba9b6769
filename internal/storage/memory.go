package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/theloz33-bot/jino-ai-interviewer/internal/interview"
)

// MemoryStore keeps sessions in a process-local map. Sessions are cloned on
// the way in and out so callers never share state with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*interview.Session
	newID    func() string
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*interview.Session),
		newID:    uuid.NewString,
	}
}

func (s *MemoryStore) Create(_ context.Context, userID string, settings interview.Settings) (*interview.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.newID()
	if _, exists := s.sessions[id]; exists {
		return nil, fmt.Errorf("session id collision: %s", id)
	}

	session := interview.NewSession(id, userID, settings)
	s.sessions[id] = session
	return session.Clone(), nil
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (*interview.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, interview.ErrSessionNotFound
	}
	return session.Clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, session *interview.Session) error {
	if session == nil || session.ID == "" {
		return fmt.Errorf("session id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session.Clone()
	return nil
}

// Len returns the number of stored sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
