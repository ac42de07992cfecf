package memory

import (
	"context"
	"fmt"
	"sync"

	"chitieu/internal/kv"
)

var _ kv.ByteStore = (*Store)(nil)

// Store is an in-process ByteStore. It can be disabled or given a quota to
// reproduce the failure modes of a browser-style local store.
type Store struct {
	mu       sync.Mutex
	items    map[string][]byte
	disabled bool
	quota    int
	writes   int
}

func New() *Store {
	return &Store{items: map[string][]byte{}}
}

// NewWith returns a store pre-seeded with the given entries.
func NewWith(seed map[string][]byte) *Store {
	s := New()
	for k, v := range seed {
		s.items[k] = append([]byte(nil), v...)
	}
	return s
}

// Get returns a copy of the stored value.
func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disabled {
		return nil, false, kv.ErrUnavailable
	}
	v, ok := s.items[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Set stores a copy of value.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disabled {
		return kv.ErrUnavailable
	}
	if s.quota > 0 && len(value) > s.quota {
		return fmt.Errorf("set %q (%d bytes, quota %d): %w", key, len(value), s.quota, kv.ErrQuotaExceeded)
	}
	s.items[key] = append([]byte(nil), value...)
	s.writes++
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disabled {
		return kv.ErrUnavailable
	}
	delete(s.items, key)
	return nil
}

// Disable makes every subsequent call fail with kv.ErrUnavailable until Enable.
func (s *Store) Disable() {
	s.mu.Lock()
	s.disabled = true
	s.mu.Unlock()
}

func (s *Store) Enable() {
	s.mu.Lock()
	s.disabled = false
	s.mu.Unlock()
}

// SetQuota limits the size of a single value; zero removes the limit.
func (s *Store) SetQuota(bytes int) {
	s.mu.Lock()
	s.quota = bytes
	s.mu.Unlock()
}

// Writes returns the number of successful Set calls.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// Keys returns the keys currently stored, in no particular order.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.items))
	for k := range s.items {
		out = append(out, k)
	}
	return out
}
