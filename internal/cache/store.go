package cache

import (
	"bytes"
	"context"
	"sync"
	"time"
)

// Store is the shared key/value store behind the coordinator. It is built
// once at process start and injected.
type Store interface {
	// Get returns the value for key; ok is false when the key is absent or expired.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Set writes value with a time to live.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Add writes value only when key is absent and reports whether it did.
	Add(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Swap replaces the value of key with value only while it still holds
	// expected, and reports whether it did.
	Swap(ctx context.Context, key string, expected, value []byte, ttl time.Duration) (bool, error)
	// DeleteIf removes key only while it still holds expected.
	DeleteIf(ctx context.Context, key string, expected []byte) (bool, error)
}

type memoryItem struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore is a process-local Store used when Redis is not configured
// and in tests.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
}

// NewMemoryStore creates an empty store on the wall clock.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(time.Now)
}

// NewMemoryStoreWithClock creates an empty store that reads time from now.
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{items: make(map[string]memoryItem), now: now}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.live(key)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), item.value...), true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = s.item(value, ttl)
	return nil
}

func (s *MemoryStore) Add(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live(key); ok {
		return false, nil
	}
	s.items[key] = s.item(value, ttl)
	return true, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

func (s *MemoryStore) Swap(_ context.Context, key string, expected, value []byte, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.live(key)
	if !ok || !bytes.Equal(item.value, expected) {
		return false, nil
	}
	s.items[key] = s.item(value, ttl)
	return true, nil
}

func (s *MemoryStore) DeleteIf(_ context.Context, key string, expected []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.live(key)
	if !ok || !bytes.Equal(item.value, expected) {
		return false, nil
	}
	delete(s.items, key)
	return true, nil
}

// live must be called with mu held.
func (s *MemoryStore) live(key string) (memoryItem, bool) {
	item, ok := s.items[key]
	if !ok {
		return memoryItem{}, false
	}
	if !item.expiresAt.IsZero() && !s.now().Before(item.expiresAt) {
		delete(s.items, key)
		return memoryItem{}, false
	}
	return item, true
}

func (s *MemoryStore) item(value []byte, ttl time.Duration) memoryItem {
	item := memoryItem{value: append([]byte(nil), value...)}
	if ttl > 0 {
		item.expiresAt = s.now().Add(ttl)
	}
	return item
}
