// Package session keeps one fretboard tracker per client session.
package session

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/ayusman/fretwise/internal/fretboard"
)

// ErrUnknownSession is returned for ids the registry does not hold.
var ErrUnknownSession = errors.New("unknown session")

// entry serializes access to a single tracker.
type entry struct {
	mu      sync.Mutex
	tracker *fretboard.Tracker
}

// Registry maps opaque session ids to trackers. Calls for the same id run
// one at a time; distinct ids run in parallel.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*entry)}
}

// Create registers t under a fresh id and returns the id.
func (r *Registry) Create(t *fretboard.Tracker) string {
	id := uuid.New().String()

	r.mu.Lock()
	r.sessions[id] = &entry{tracker: t}
	r.mu.Unlock()

	return id
}

// Do runs fn with the tracker for id while holding that session's lock.
func (r *Registry) Do(id string, fn func(*fretboard.Tracker) error) error {
	r.mu.RLock()
	e, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return ErrUnknownSession
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.tracker)
}

// Remove drops the session. An in-flight Do on the same id finishes first.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	e, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	if !ok {
		return ErrUnknownSession
	}

	e.mu.Lock()
	e.mu.Unlock()
	return nil
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[id]
	return ok
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
