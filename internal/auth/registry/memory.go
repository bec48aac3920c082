package registry

import (
	"context"
	"sync"
	"time"
)

// Memory is a process-local registry. Its contents are lost on restart,
// which logs everybody out.
type Memory struct {
	mu      sync.Mutex
	entries map[string]Entry

	// Now is overridable for tests.
	Now func() time.Time
}

var _ Registry = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]Entry),
		Now:     func() time.Time { return time.Now().UTC() },
	}
}

func (m *Memory) Register(_ context.Context, token string, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[fingerprint(token)] = e
	return nil
}

func (m *Memory) IsValid(_ context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[fingerprint(token)]
	return ok && e.Active(m.Now()), nil
}

func (m *Memory) Revoke(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, fingerprint(token))
	return nil
}

func (m *Memory) Rotate(_ context.Context, old, next string, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	oldFP := fingerprint(old)
	cur, ok := m.entries[oldFP]
	if !ok {
		return ErrNotRegistered
	}
	delete(m.entries, oldFP)
	if !cur.Active(m.Now()) {
		return ErrNotRegistered
	}

	m.entries[fingerprint(next)] = e
	return nil
}

func (m *Memory) RevokeUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for fp, e := range m.entries {
		if e.UserID == userID {
			delete(m.entries, fp)
		}
	}
	return nil
}

func (m *Memory) Prune(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.Now()
	for fp, e := range m.entries {
		if !e.Active(now) {
			delete(m.entries, fp)
		}
	}
	return nil
}

// Len is the number of tracked entries, including expired ones not yet pruned.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
