// Package history keeps the most recent scan results in memory.
package history

import (
	"errors"
	"sync"
	"time"

	"github.com/MeKo-Tech/qrlens/internal/payload"
	"github.com/google/uuid"
)

// DefaultCapacity is the number of entries retained.
const DefaultCapacity = 100

// ErrNotFound is returned when an entry id is not present.
var ErrNotFound = errors.New("history: entry not found")

// Entry is a single remembered scan.
type Entry struct {
	ID       string       `json:"id"`
	Data     string       `json:"data"`
	Kind     payload.Kind `json:"kind"`
	Strategy string       `json:"strategy,omitempty"`
	Source   string       `json:"source,omitempty"`
	Time     time.Time    `json:"time"`
}

// Store is a bounded, newest-first scan history. It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	entries  []Entry
	capacity int
	now      func() time.Time
}

// New creates a store holding at most capacity entries; values <= 0 use
// DefaultCapacity.
func New(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{capacity: capacity, now: time.Now}
}

// Add records data at the front of the history and evicts the oldest
// entries beyond capacity.
func (s *Store) Add(data, strategy, source string) Entry {
	e := Entry{
		ID:       uuid.NewString(),
		Data:     data,
		Kind:     payload.Classify(data).Kind,
		Strategy: strategy,
		Source:   source,
		Time:     s.now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append([]Entry{e}, s.entries...)
	if len(s.entries) > s.capacity {
		s.entries = s.entries[:s.capacity]
	}
	return e
}

// List returns a snapshot of all entries, newest first.
func (s *Store) List() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Entry(nil), s.entries...)
}

// Get returns the entry with the given id.
func (s *Store) Get(id string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return Entry{}, ErrNotFound
}

// Delete removes the entry with the given id.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.entries {
		if e.ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// Clear removes every entry.
func (s *Store) Clear() {
	s.mu.Lock()
	s.entries = nil
	s.mu.Unlock()
}

// Len reports the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
