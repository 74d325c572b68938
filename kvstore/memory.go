package kvstore

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Memory is an in-memory Store for testing and single-node development.
// It enforces TTL expiration on read for testing fidelity. It satisfies
// the Store contract within one process but does not survive restarts,
// so deployments that rely on crash recovery must use a durable backend.
type Memory struct {
	mu    sync.RWMutex
	items map[string]memEntry
}

type memEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiration
}

// NewMemory creates a new in-memory Store.
func NewMemory() *Memory {
	return &Memory{items: make(map[string]memEntry)}
}

// Get retrieves a value. Expired entries are removed lazily.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	entry, ok := m.items[key]
	m.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if entry.expired(time.Now()) {
		m.mu.Lock()
		// A concurrent Set may have replaced the entry since the read lock
		// was dropped; only delete what is still expired.
		if cur, ok := m.items[key]; ok && cur.expired(time.Now()) {
			delete(m.items, key)
		}
		m.mu.Unlock()
		return nil, false, nil
	}
	return entry.value, true, nil
}

// Set stores a value with optional TTL.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = newEntry(value, ttl)
	return nil
}

// SetNX stores a value only if the key is absent or expired.
func (m *Memory) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, ok := m.items[key]; ok && !entry.expired(time.Now()) {
		return false, nil
	}
	m.items[key] = newEntry(value, ttl)
	return true, nil
}

// Delete removes a key.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

// Keys returns all live keys with the given prefix.
func (m *Memory) Keys(_ context.Context, prefix string) ([]string, error) {
	now := time.Now()

	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string
	for k, entry := range m.items {
		if !strings.HasPrefix(k, prefix) || entry.expired(now) {
			continue
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// Len returns the number of entries, including expired but not yet
// cleaned up ones. Useful for test assertions.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

func newEntry(value []byte, ttl time.Duration) memEntry {
	entry := memEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	return entry
}

func (e memEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// compile-time interface check
var _ Store = (*Memory)(nil)
