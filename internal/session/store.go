// Package session keeps the per-client analysis bundle between the
// consultation and the visualization request.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"styliq/internal/domain"
)

// ErrNotFound is returned for unknown or expired sessions.
var ErrNotFound = errors.New("session: not found")

// DefaultTTL applies when a store is built with a non-positive TTL.
const DefaultTTL = 30 * time.Minute

// Store persists sessions for a bounded time.
type Store interface {
	Get(ctx context.Context, id string) (domain.Session, error)
	Put(ctx context.Context, s domain.Session) error
	Delete(ctx context.Context, id string) error
}

type memoryEntry struct {
	session   domain.Session
	expiresAt time.Time
}

// MemoryStore is a process-local Store. Expired entries are dropped on read
// and on every write.
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]memoryEntry
}

// NewMemoryStore builds an empty in-memory store.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{ttl: ttl, now: time.Now, entries: make(map[string]memoryEntry)}
}

func (m *MemoryStore) Get(_ context.Context, id string) (domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[id]
	if !ok {
		return domain.Session{}, ErrNotFound
	}
	if !m.now().Before(entry.expiresAt) {
		delete(m.entries, id)
		return domain.Session{}, ErrNotFound
	}
	return entry.session, nil
}

func (m *MemoryStore) Put(_ context.Context, s domain.Session) error {
	if s.ID == "" {
		return errors.New("session: id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for id, entry := range m.entries {
		if !now.Before(entry.expiresAt) {
			delete(m.entries, id)
		}
	}
	m.entries[s.ID] = memoryEntry{session: s, expiresAt: now.Add(m.ttl)}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.entries, id)
	m.mu.Unlock()
	return nil
}

