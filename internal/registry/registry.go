// Package registry holds live tutoring sessions between HTTP requests.
// Sessions are in-memory only; the persistence layer receives records and
// summaries separately. The abstraction exists so a shared deployment can
// swap in an external store without touching the handlers.
package registry

import (
	"fmt"
	"sync"

	"github.com/adaptutor/adaptutor/internal/engine"
)

// ErrNotFound is returned for an unknown or already-finished session ID.
var ErrNotFound = fmt.Errorf("session not found")

// Entry pairs a live session with its own lock. Engine sessions are not
// safe for concurrent use, so callers must hold the lock across a whole
// question/answer exchange.
type Entry struct {
	sync.Mutex
	Session *engine.Session
}

// Registry is a concurrency-safe map of live sessions keyed by session ID.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// Put registers a live session under its ID.
func (r *Registry) Put(s *engine.Session) *Entry {
	e := &Entry{Session: s}
	r.mu.Lock()
	r.entries[s.ID] = e
	r.mu.Unlock()
	return e
}

// Get looks up a live session entry by ID.
func (r *Registry) Get(id string) (*Entry, error) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("session %q: %w", id, ErrNotFound)
	}
	return e, nil
}

// Remove drops a session after it has been summarized.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.entries, id)
	r.mu.Unlock()
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
