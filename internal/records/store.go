// ABOUTME: In-memory store merging fetched attendance history with live push events.
// ABOUTME: Keeps the collection unique by id and sorted by timestamp descending.

package records

import (
	"log/slog"
	"sort"
	"sync"
)

// Store holds the attendance records visible to one employee for the
// lifetime of a session. It is seeded once from the history endpoint and
// then mutated only by Ingest as events arrive on the realtime channel.
// All methods are safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	byID   map[int64]int // event id -> index into events
	events []AttendanceEvent
	logger *slog.Logger
}

// NewStore creates an empty record store. Pass nil logger for default.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		byID:   make(map[int64]int),
		logger: logger.With("component", "records"),
	}
}

// Seed installs the initial history fetched from the API, deduplicated by
// id and sorted descending. Later calls replace the whole collection.
func (s *Store) Seed(history []AttendanceEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = s.events[:0]
	clear(s.byID)
	for _, e := range history {
		if i, ok := s.byID[e.ID]; ok {
			s.events[i] = e
			continue
		}
		s.byID[e.ID] = len(s.events)
		s.events = append(s.events, e)
	}
	s.sortLocked()

	s.logger.Debug("store seeded", "count", len(s.events))
}

// Ingest inserts a live event into the collection. Re-delivery of an id
// already present replaces the stored event, so ingesting the same event
// twice leaves the collection unchanged in membership.
func (s *Store) Ingest(event AttendanceEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i, ok := s.byID[event.ID]; ok {
		s.events[i] = event
		s.sortLocked()
		return
	}

	// Prepend, matching arrival order for equal timestamps, then restore
	// the descending-by-timestamp invariant.
	s.events = append([]AttendanceEvent{event}, s.events...)
	s.sortLocked()
}

// sortLocked re-sorts events descending by timestamp and rebuilds the id
// index. Must be called with mu held.
func (s *Store) sortLocked() {
	sort.SliceStable(s.events, func(i, j int) bool {
		return s.events[i].Time().After(s.events[j].Time())
	})
	for i, e := range s.events {
		s.byID[e.ID] = i
	}
}

// Snapshot returns a copy of the current collection, newest first.
func (s *Store) Snapshot() []AttendanceEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]AttendanceEvent, len(s.events))
	copy(out, s.events)
	return out
}

// Len returns the number of records currently held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}
