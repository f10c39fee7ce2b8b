package history

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a simple in-process conversation log for local/dev use.
type InMemoryStore struct {
	mu    sync.RWMutex
	seq   int64
	turns map[string][]Turn
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{turns: make(map[string][]Turn)}
}

func (s *InMemoryStore) Append(_ context.Context, turn Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	s.seq++
	turn.Seq = s.seq
	s.turns[turn.SessionID] = append(s.turns[turn.SessionID], turn)
	return nil
}

func (s *InMemoryStore) Recent(_ context.Context, sessionID string, limit int) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	arr := s.turns[sessionID]
	if len(arr) == 0 {
		return nil, nil
	}
	if limit <= 0 || limit > len(arr) {
		limit = len(arr)
	}
	out := make([]Turn, limit)
	copy(out, arr[len(arr)-limit:])
	return out, nil
}

func (s *InMemoryStore) All(_ context.Context, sessionID string) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	arr := s.turns[sessionID]
	if len(arr) == 0 {
		return nil, nil
	}
	out := make([]Turn, len(arr))
	copy(out, arr)
	return out, nil
}

func (s *InMemoryStore) Close() error { return nil }
