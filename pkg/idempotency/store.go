package idempotency

import (
	"context"
	"sync"
	"time"
)

// Store records which request owns a key. Claim is atomic: exactly one caller wins.
type Store interface {
	// Claim takes key for owner. When another owner already holds it, that owner is
	// returned with claimed=false.
	Claim(ctx context.Context, key, owner string, ttl time.Duration) (holder string, claimed bool, err error)
	Release(ctx context.Context, key string) error
}

type memoryEntry struct {
	owner     string
	expiresAt time.Time
}

// MemoryStore is a process-local Store
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (m *MemoryStore) Claim(_ context.Context, key, owner string, ttl time.Duration) (string, bool, error) {
	ttl, err := ValidateTTL(ttl)
	if err != nil {
		return "", false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if e, ok := m.entries[key]; ok && now.Before(e.expiresAt) {
		return e.owner, e.owner == owner, nil
	}
	m.entries[key] = memoryEntry{owner: owner, expiresAt: now.Add(ttl)}
	return owner, true, nil
}

func (m *MemoryStore) Release(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}
