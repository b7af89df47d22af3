package session

import (
	"context"
	"sync"

	"github.com/cloudwego/eino/schema"
)

// MemoryStore is the in-process session tier. It mirrors the Redis store's
// ownership semantics but holds everything in a mutex-protected map, so
// histories vanish on restart.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*memorySession
}

type memorySession struct {
	owner    string
	messages []*schema.Message
}

// NewMemoryStore creates an empty in-process session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*memorySession)}
}

func (s *MemoryStore) Load(_ context.Context, sessionID, userID string) (*History, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return &History{SessionID: sessionID, Messages: []*schema.Message{}}, nil
	}
	if sess.owner != userID {
		return nil, ErrNotOwner
	}

	msgs := make([]*schema.Message, len(sess.messages))
	copy(msgs, sess.messages)
	return &History{SessionID: sessionID, Messages: msgs}, nil
}

func (s *MemoryStore) Append(_ context.Context, sessionID, userID string, msgs ...*schema.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &memorySession{owner: userID}
		s.sessions[sessionID] = sess
	}
	if sess.owner != userID {
		return ErrNotOwner
	}
	sess.messages = append(sess.messages, msgs...)
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, sessionID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	if sess.owner != userID {
		return ErrNotOwner
	}
	delete(s.sessions, sessionID)
	return nil
}

func (s *MemoryStore) Count(_ context.Context, sessionID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[sessionID]; ok {
		return len(sess.messages), nil
	}
	return 0, nil
}

var _ Store = (*MemoryStore)(nil)
