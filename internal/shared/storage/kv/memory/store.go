package memory

import (
	"context"
	"strings"
	"sync"

	"resume-feedback/internal/shared/storage/kv"
)

// Store is an in-memory kv.Store for development and tests.
type Store struct {
	mu   sync.RWMutex
	data map[string]string
}

// New returns an empty store.
func New() *Store {
	return &Store{data: make(map[string]string)}
}

// Set stores value under key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.data[key] = value
	s.mu.Unlock()
	return nil
}

// Get returns the value for key or kv.ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.data[key]
	if !ok {
		return "", kv.ErrNotFound
	}
	return value, nil
}

// List returns all entries whose key starts with prefix, ordered by key.
func (s *Store) List(ctx context.Context, prefix string) ([]kv.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]kv.Entry, 0, len(s.data))
	for k, v := range s.data {
		if strings.HasPrefix(k, prefix) {
			out = append(out, kv.Entry{Key: k, Value: v})
		}
	}
	s.mu.RUnlock()
	kv.SortEntries(out)
	return out, nil
}

var _ kv.Store = (*Store)(nil)
