package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps resume state in process. It survives reconnects, not
// restarts, and is mostly useful in tests.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]ResumeState
	ttl    time.Duration
	now    func() time.Time
}

// NewMemoryStore returns a store whose entries expire ttl after their last
// Save. A ttl <= 0 keeps entries forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		states: make(map[string]ResumeState),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (m *MemoryStore) Load(_ context.Context, key string) (*ResumeState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.states[key]
	if !ok || m.expired(state) {
		return nil, ErrNotFound
	}

	return &state, nil
}

func (m *MemoryStore) Save(_ context.Context, key string, state *ResumeState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *state
	if copied.UpdatedAt.IsZero() {
		copied.UpdatedAt = m.now()
	}
	m.states[key] = copied

	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.states, key)
	return nil
}

func (m *MemoryStore) expired(state ResumeState) bool {
	return m.ttl > 0 && m.now().Sub(state.UpdatedAt) > m.ttl
}

var _ Store = (*MemoryStore)(nil)
