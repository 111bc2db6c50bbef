// Package memory provides a process-local persistence.KeyValueStore used for
// tests and for the "memory" storage driver.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/example/ticketdesk/internal/persistence"
)

var _ persistence.KeyValueStore = (*Store)(nil)

// Store keeps records in a map guarded by a read/write mutex.
type Store struct {
	mu      sync.RWMutex
	records map[string]string
	closed  bool
}

// New returns an empty Store.
func New() *Store {
	return &Store{records: make(map[string]string)}
}

// Get returns the record stored under key.
func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", persistence.ErrClosed
	}
	value, ok := s.records[key]
	if !ok {
		return "", persistence.ErrNotFound
	}
	return value, nil
}

// Set stores value under key, replacing any previous record.
func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return persistence.ErrClosed
	}
	s.records[key] = value
	return nil
}

// Remove deletes the record stored under key.
func (s *Store) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return persistence.ErrClosed
	}
	delete(s.records, key)
	return nil
}

// Keys returns the stored keys in lexical order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.records))
	for key := range s.records {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Close marks the store unusable. Records are dropped.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.records = nil
	return nil
}
