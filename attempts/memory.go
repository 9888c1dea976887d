package attempts

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMemoryCapacity bounds the number of identifiers a MemoryStore tracks.
const DefaultMemoryCapacity = 100_000

// MemoryStore keeps records in a bounded in-process LRU. The least recently
// touched identifier is evicted when capacity is reached.
type MemoryStore struct {
	mu    sync.Mutex
	cache *lru.Cache[string, Record]
}

// NewMemoryStore creates a store holding at most capacity identifiers. A
// non-positive capacity selects DefaultMemoryCapacity.
func NewMemoryStore(capacity int) (*MemoryStore, error) {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	cache, err := lru.New[string, Record](capacity)
	if err != nil {
		return nil, err
	}
	return &MemoryStore{cache: cache}, nil
}

// Load implements [Store].
func (m *MemoryStore) Load(_ context.Context, identifier string) (Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.cache.Peek(identifier)
	return rec, ok, nil
}

// Increment implements [Store]. Stale records are not expired eagerly; they
// age out through LRU eviction or are replaced on the next attempt.
func (m *MemoryStore) Increment(_ context.Context, identifier string, now time.Time, window time.Duration) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.cache.Get(identifier)
	next := NextRecord(identifier, cur, ok, now, window)
	m.cache.Add(identifier, next)
	return next, nil
}

// Delete implements [Store].
func (m *MemoryStore) Delete(_ context.Context, identifier string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cache.Remove(identifier)
	return nil
}

// Len returns the number of tracked identifiers.
func (m *MemoryStore) Len() int {
	return m.cache.Len()
}
