package stream

import (
	"fmt"
	"sort"
	"sync"
)

// Registry keeps live sessions by ID so tool events arriving on another
// channel can find the message they belong to.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Register adds a session. Registering the same ID twice is an error.
func (r *Registry) Register(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[s.ID()]; exists {
		return fmt.Errorf("session %s already registered", s.ID())
	}
	r.sessions[s.ID()] = s
	return nil
}

// Get returns the session with the given ID
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	return s, ok
}

// Remove drops a session
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// List returns the registered IDs in sorted order
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Dispatch applies a tool event to the named session.
func (r *Registry) Dispatch(id string, e ToolEvent) error {
	s, ok := r.Get(id)
	if !ok {
		return fmt.Errorf("session %s not found", id)
	}
	return s.ApplyToolEvent(e)
}

// Prune removes sessions that no longer accept chunks and returns how many
// were removed.
func (r *Registry) Prune() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, s := range r.sessions {
		if s.Closed() {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}
