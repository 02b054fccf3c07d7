package repository

import (
	"context"
	"sync"
	"time"

	"github.com/KaanK026/Harvia/internal/domain"
)

// MemoryStore implements Store in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*domain.Session),
		now:      time.Now,
	}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) GetSession(_ context.Context, sessionID string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	cp := *sess
	cp.History = append([]domain.Message(nil), sess.History...)
	return &cp, nil
}

func (s *MemoryStore) AppendExchange(_ context.Context, sessionID, userID, question, answer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &domain.Session{SessionID: sessionID, UserID: userID, CreatedAt: now}
		s.sessions[sessionID] = sess
	}
	sess.UpdatedAt = now
	sess.History = append(sess.History,
		domain.Message{Role: domain.RoleUser, Content: question, CreatedAt: now},
		domain.Message{Role: domain.RoleAssistant, Content: answer, CreatedAt: now},
	)
	return nil
}

func (s *MemoryStore) ClearSession(_ context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return false, nil
	}
	delete(s.sessions, sessionID)
	return true, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
