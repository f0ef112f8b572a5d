package session

import (
	"context"
	"sync"
)

// MemoryStore keeps sessions in process memory. Contents are lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	opts     options
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		opts:     buildOptions(opts),
	}
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, userID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[userID]
	if !ok || s.Expired(m.opts.now(), m.opts.ttl) {
		return nil, nil
	}
	return s.Clone(), nil
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.UserID] = s.Clone()
	return nil
}

// Sweep implements Store.
func (m *MemoryStore) Sweep(_ context.Context) (int, error) {
	now := m.opts.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, s := range m.sessions {
		if s.Expired(now, m.opts.ttl) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// Count implements Store. Expired but unswept sessions are not counted.
func (m *MemoryStore) Count(_ context.Context) (int, error) {
	now := m.opts.now()
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, s := range m.sessions {
		if !s.Expired(now, m.opts.ttl) {
			n++
		}
	}
	return n, nil
}

// Len returns the raw number of stored sessions, expired included.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Ping implements Store.
func (m *MemoryStore) Ping(context.Context) error { return nil }

// Close implements Store.
func (m *MemoryStore) Close() error { return nil }
