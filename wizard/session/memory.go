package session

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemStore is an in-memory implementation of Store.
//
// Designed for:
//   - Testing and development
//   - Single-process usage where persistence isn't required
//
// MemStore is thread-safe and deep-copies configs at the boundary, so a
// reader never observes a half-written or later-mutated Session.
//
// Limitations:
//   - Data is lost when the process terminates (no reload survival)
//
// For persistence across restarts use SQLiteStore or MySQLStore.
type MemStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	active   string
	now      func() time.Time
}

// NewMemStore creates a new in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		sessions: make(map[string]Session),
		now:      time.Now,
	}
}

// SetClock overrides the store's time source. Useful in tests.
func (m *MemStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
}

// Create writes a new Session and sets it as the active session pointer.
func (m *MemStore) Create(_ context.Context, id string, config map[string]interface{}) error {
	copied, err := cloneConfig(config)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ts := m.now()
	m.sessions[id] = Session{
		ID:           id,
		Config:       copied,
		CreatedAt:    ts,
		LastModified: ts,
	}
	m.active = id
	return nil
}

// Persist upserts the session's config and LastModified timestamp.
func (m *MemStore) Persist(_ context.Context, id string, config map[string]interface{}) error {
	copied, err := cloneConfig(config)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ts := m.now()
	existing, ok := m.sessions[id]
	if !ok {
		m.sessions[id] = Session{
			ID:           id,
			Config:       copied,
			CreatedAt:    ts,
			LastModified: ts,
		}
		return nil
	}

	existing.Config = copied
	existing.LastModified = ts
	m.sessions[id] = existing
	return nil
}

// Load retrieves a session by ID. Returns ErrNotFound for unknown ids.
func (m *MemStore) Load(_ context.Context, id string) (Session, error) {
	m.mu.RLock()
	sess, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok {
		return Session{}, ErrNotFound
	}

	copied, err := cloneConfig(sess.Config)
	if err != nil {
		return Session{}, err
	}
	sess.Config = copied
	return sess, nil
}

// ActiveSession returns the active-session pointer, "" when unset.
func (m *MemStore) ActiveSession(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active, nil
}

// SetActiveSession updates the active-session pointer.
func (m *MemStore) SetActiveSession(_ context.Context, id string) error {
	m.mu.Lock()
	m.active = id
	m.mu.Unlock()
	return nil
}

// List returns all sessions ordered by LastModified descending.
func (m *MemStore) List(_ context.Context) ([]Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		copied, err := cloneConfig(sess.Config)
		if err != nil {
			return nil, err
		}
		sess.Config = copied
		out = append(out, sess)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].LastModified.After(out[j].LastModified)
	})
	return out, nil
}
