package contextstore

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore is the in-process Store used in tests and single-node dev
// setups. Each append is atomic under the mutex; concurrent requests for
// different users never block each other beyond the map access.
type MemoryStore struct {
	mu     sync.Mutex
	window int
	turns  map[string][]string
}

func NewMemoryStore(window int) *MemoryStore {
	if window <= 0 {
		window = DefaultWindow
	}
	return &MemoryStore{
		window: window,
		turns:  make(map[string][]string),
	}
}

func (s *MemoryStore) AppendTurn(_ context.Context, userID, role, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := append(s.turns[userID], FormatTurn(role, text))
	if len(entries) > s.window {
		entries = entries[len(entries)-s.window:]
	}
	s.turns[userID] = entries
	return nil
}

func (s *MemoryStore) Context(_ context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.turns[userID]
	if len(entries) == 0 {
		return "", nil
	}
	return strings.Join(entries, "\n"), nil
}
