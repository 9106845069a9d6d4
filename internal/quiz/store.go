package quiz

import (
	"context"
	"sync"
)

// AttemptStore keeps at most one attempt per learner
type AttemptStore interface {
	// Get returns ErrNoActiveAttempt when the learner has no attempt
	Get(ctx context.Context, learnerID int64) (*Attempt, error)
	// Save replaces any attempt of the same learner
	Save(ctx context.Context, a *Attempt) error
	Delete(ctx context.Context, learnerID int64) error
}

// MemoryStore is a process-local AttemptStore. Attempts are lost on restart.
type MemoryStore struct {
	mu       sync.Mutex
	attempts map[int64]*Attempt
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{attempts: make(map[int64]*Attempt)}
}

func (s *MemoryStore) Get(_ context.Context, learnerID int64) (*Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[learnerID]
	if !ok {
		return nil, ErrNoActiveAttempt
	}
	return a.clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, a *Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[a.LearnerID] = a.clone()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, learnerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attempts, learnerID)
	return nil
}

// Len returns the number of live attempts
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.attempts)
}
