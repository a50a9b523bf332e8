// apps/go-server/internal/store/memory.go
//
// In-memory implementation of the Store interface.
// This is a lightweight persistence layer for live puzzle sessions; state is
// lost when the process restarts (persisting boards across runs is not a goal).
//
// Characteristics:
//   - Stores *puzzle.Session objects keyed by ID in a map.
//   - Map access is guarded by an RWMutex (concurrent reads allowed, writes exclusive).
//   - Each session also carries its own mutex: Update runs the callback while
//     holding it, so a session only ever sees one mutating actor at a time.
//   - Save and Update stamp the entry; Idle lists entries untouched since a
//     cutoff so the server can Delete abandoned boards.
//   - ErrNotFound is returned for missing session IDs.

package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robalobadob/connections/apps/go-server/internal/puzzle"
)

// ErrNotFound is returned when no session exists for an ID.
var ErrNotFound = errors.New("not found")

// Store defines the persistence interface for puzzle sessions.
type Store interface {
	// Save persists or replaces a session.
	Save(ctx context.Context, s *puzzle.Session) error

	// Update runs fn with exclusive access to the session with the given ID.
	// fn's error is returned unchanged.
	Update(ctx context.Context, id string, fn func(s *puzzle.Session) error) error

	// Delete removes a session. Deleting an unknown ID is not an error.
	Delete(ctx context.Context, id string) error

	// Idle lists the IDs of sessions last saved or updated before cutoff.
	Idle(cutoff time.Time) []string

	// Len reports the number of live sessions.
	Len() int
}

type entry struct {
	mu      sync.Mutex
	s       *puzzle.Session
	touched atomic.Int64 // unix nanos of the last Save/Update
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu       sync.RWMutex      // guards sessions map
	sessions map[string]*entry // keyed by Session.ID
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{sessions: make(map[string]*entry)}
}

func (m *memory) Save(ctx context.Context, s *puzzle.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := &entry{s: s}
	e.touched.Store(time.Now().UnixNano())
	m.sessions[s.ID] = e
	return nil
}

func (m *memory) Update(ctx context.Context, id string, fn func(s *puzzle.Session) error) error {
	m.mu.RLock()
	e, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touched.Store(time.Now().UnixNano())
	return fn(e.s)
}

func (m *memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *memory) Idle(cutoff time.Time) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []string
	for id, e := range m.sessions {
		if e.touched.Load() < cutoff.UnixNano() {
			ids = append(ids, id)
		}
	}
	return ids
}

func (m *memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
