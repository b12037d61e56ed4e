package session

import (
	"sync"

	"github.com/rkarimi/encore/internal/domain/errs"
	"github.com/rkarimi/encore/internal/domain/model"
)

// Manager enforces the at-most-one-session-per-user guarantee.
type Manager struct {
	mu     sync.RWMutex
	active map[string]*Session
}

// NewManager creates an empty session manager.
func NewManager() *Manager {
	return &Manager{active: make(map[string]*Session)}
}

// Begin registers a new session for the owner. A second Begin while one is
// active is rejected rather than silently interleaving two queues.
func (m *Manager) Begin(ownerID, setID string, bucket model.Bucket) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.active[ownerID]; exists {
		return nil, errs.Conflictf("a ranking session is already active for user %s", ownerID)
	}
	s := New(ownerID, setID, bucket)
	m.active[ownerID] = s
	return s, nil
}

// Get returns the owner's active session.
func (m *Manager) Get(ownerID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.active[ownerID]
	if !ok {
		return nil, errs.Conflictf("no active ranking session for user %s", ownerID)
	}
	return s, nil
}

// End removes the owner's session, whatever its state.
func (m *Manager) End(ownerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, ownerID)
}

// ActiveCount returns the number of live sessions.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.active)
}
