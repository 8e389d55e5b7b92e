package recommend

import (
	"sync"

	"github.com/google/uuid"
)

// Session carries request-scoped working state across the stages of a batch
// run. Callers create one per request and pass it explicitly; nothing in this
// package holds a session beyond the call that received it.
type Session struct {
	ID string

	mu     sync.Mutex
	values map[string]any
}

// NewSession creates an empty session with a fresh identifier.
func NewSession() *Session {
	return &Session{
		ID:     uuid.New().String(),
		values: make(map[string]any),
	}
}

// Set stores a value under key.
func (s *Session) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Get retrieves a value by key.
func (s *Session) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Len reports how many values the session holds.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values)
}
