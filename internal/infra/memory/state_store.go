package memory

import (
	"sync"
)

// StateStore is an in-memory implementation of app.StateStore, useful for
// tests and single-process deployments. Each namespace holds one opaque
// state blob.
type StateStore struct {
	mu     sync.RWMutex
	states map[string][]byte
}

func NewStateStore() *StateStore {
	return &StateStore{states: make(map[string][]byte)}
}

func (s *StateStore) ReadState(namespace string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.states[namespace]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, true
}

func (s *StateStore) WriteState(namespace string, data []byte) {
	stored := make([]byte, len(data))
	copy(stored, data)
	s.mu.Lock()
	s.states[namespace] = stored
	s.mu.Unlock()
}

func (s *StateStore) DeleteState(namespace string) {
	s.mu.Lock()
	delete(s.states, namespace)
	s.mu.Unlock()
}
