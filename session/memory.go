// Package session stores per-thread conversation history. Threads are
// independent; within a thread turns are strictly ordered and appended
// by one writer at a time.
package session

import (
	"context"
	"sync"

	"github.com/fahadazizz/knowledg-rag/rag"
)

// DefaultWindow is how many turns a thread retains by default
const DefaultWindow = 50

// MemoryStore is an in-memory rag.SessionStore with a bounded window
// per thread; the oldest turns are evicted first.
type MemoryStore struct {
	mu      sync.RWMutex
	threads map[string][]rag.Turn
	window  int
}

// MemoryStoreOption configures the MemoryStore
type MemoryStoreOption func(*MemoryStore)

// WithWindow bounds how many turns each thread keeps
func WithWindow(n int) MemoryStoreOption {
	return func(s *MemoryStore) {
		if n > 0 {
			s.window = n
		}
	}
}

// NewMemoryStore creates a new in-memory session store
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		threads: make(map[string][]rag.Turn),
		window:  DefaultWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ rag.SessionStore = (*MemoryStore)(nil)

// Load returns the thread's turns oldest first. Unknown threads have
// empty history.
func (s *MemoryStore) Load(ctx context.Context, threadID string) ([]rag.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.threads[threadID]
	out := make([]rag.Turn, len(turns))
	copy(out, turns)
	return out, nil
}

// Append adds a completed turn to the thread, evicting the oldest
// turn when the window is full.
func (s *MemoryStore) Append(ctx context.Context, threadID string, turn rag.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := append(s.threads[threadID], turn)
	if len(turns) > s.window {
		turns = turns[len(turns)-s.window:]
	}
	s.threads[threadID] = turns
	return nil
}
