// Package docstore is a keyed JSON document store with read-modify-write updates.
package docstore

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sync"
)

// ErrConflict is returned when an update keeps losing to concurrent writers.
var ErrConflict = stderrors.New("docstore: too many concurrent modifications")

// MutateFunc receives the current document (nil when absent) and returns the new one.
type MutateFunc func(current []byte) ([]byte, error)

type Store interface {
	// Get returns the raw document, or nil when the key does not exist.
	Get(ctx context.Context, collection, key string) ([]byte, error)
	Set(ctx context.Context, collection, key string, doc []byte) error
	// Update applies mutate atomically per key. mutate may be called more than once.
	Update(ctx context.Context, collection, key string, mutate MutateFunc) error
}

// GetJSON decodes the document into dest. It reports false when the key does not exist.
func GetJSON(ctx context.Context, s Store, collection, key string, dest interface{}) (bool, error) {
	raw, err := s.Get(ctx, collection, key)
	if err != nil {
		return false, err
	}
	if raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode %s/%s: %w", collection, key, err)
	}
	return true, nil
}

// MemoryStore keeps documents in a map. Updates are serialized.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]byte)}
}

func (s *MemoryStore) Get(_ context.Context, collection, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[docKey(collection, key)]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(doc))
	copy(out, doc)
	return out, nil
}

func (s *MemoryStore) Set(_ context.Context, collection, key string, doc []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[docKey(collection, key)] = append([]byte(nil), doc...)
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, collection, key string, mutate MutateFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := docKey(collection, key)
	next, err := mutate(s.docs[k])
	if err != nil {
		return err
	}
	s.docs[k] = append([]byte(nil), next...)
	return nil
}

func docKey(collection, key string) string {
	return collection + ":" + key
}
