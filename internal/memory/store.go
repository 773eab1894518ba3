// Package memory provides the in-process key/value store behind the
// memory agent: save, recall, list, and clear.
package memory

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Entry is a stored value with its bookkeeping metadata.
type Entry struct {
	Key     string    `json:"key"`
	Value   string    `json:"value"`
	SavedAt time.Time `json:"saved_at"`
	Size    int       `json:"size"`
}

// Store is a mutex-guarded in-process memory store. Contents do not
// survive process restarts.
type Store struct {
	mu    sync.RWMutex
	items map[string]Entry
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{items: make(map[string]Entry)}
}

// Save stores a value under key, replacing any previous value.
func (s *Store) Save(key, value string) error {
	if key == "" {
		return fmt.Errorf("missing key for save operation")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = Entry{
		Key:     key,
		Value:   value,
		SavedAt: time.Now().UTC(),
		Size:    len(value),
	}
	return nil
}

// Recall returns the entry stored under key.
func (s *Store) Recall(key string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.items[key]
	return e, ok
}

// List returns all entries sorted by key.
func (s *Store) List() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(s.items))
	for _, e := range s.items {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Clear removes the entry under key, or every entry when key is
// empty. It returns the number of entries removed.
func (s *Store) Clear(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if key == "" {
		n := len(s.items)
		s.items = make(map[string]Entry)
		return n
	}
	if _, ok := s.items[key]; !ok {
		return 0
	}
	delete(s.items, key)
	return 1
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
