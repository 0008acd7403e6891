// Package timeline holds the ordered, lock-guarded event list shared between
// the recorder and its consumers, and the file codec for it.
package timeline

import (
	"sync"

	"github.com/macrorec-project/macrorec/pkg/model"
)

// Store is a mutually-exclusive, ordered, growable list of events.
// All methods are safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	events []model.Event
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Append adds an event at the end of the timeline.
func (s *Store) Append(ev model.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

// Snapshot returns a copy of the timeline taken under the lock.
// Later appends never show up in the returned slice.
func (s *Store) Snapshot() []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Event, len(s.events))
	copy(out, s.events)
	return out
}

// Clear removes all events.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

// Replace swaps the whole timeline for a copy of events.
func (s *Store) Replace(events []model.Event) {
	saved := make([]model.Event, len(events))
	copy(saved, events)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = saved
}

// Len returns the number of events.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}
