package stream

import (
	"sync"
	"time"
)

// State is the lifecycle state of a stream
type State int

const (
	StateIdle State = iota
	StateStreaming
	StateComplete
	StateError
	StateCancelled
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateComplete:
		return "complete"
	case StateError:
		return "error"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the stream has ended
func (s State) Terminal() bool {
	return s == StateComplete || s == StateError || s == StateCancelled
}

// Info holds what the tracker knows about one stream
type Info struct {
	ID        string
	State     State
	StartTime time.Time
	EndTime   time.Time
	Error     error
	Chunks    int
	Bytes     int
	Revision  int
}

// Tracker tracks the state of multiple streams
type Tracker struct {
	states map[string]*Info
	mu     sync.RWMutex
	now    func() time.Time
}

// NewTracker creates a new state tracker
func NewTracker() *Tracker {
	return &Tracker{
		states: make(map[string]*Info),
		now:    time.Now,
	}
}

// Start marks a stream as streaming
func (t *Tracker) Start(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.states[id] = &Info{
		ID:        id,
		State:     StateStreaming,
		StartTime: t.now(),
	}
}

// Chunk records a received chunk and the revision it produced
func (t *Tracker) Chunk(id string, size, revision int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if info, ok := t.states[id]; ok {
		info.Chunks++
		info.Bytes += size
		info.Revision = revision
	}
}

// Finish moves a stream to a terminal state
func (t *Tracker) Finish(id string, state State, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if info, ok := t.states[id]; ok {
		info.State = state
		info.Error = err
		if state.Terminal() {
			info.EndTime = t.now()
		}
	}
}

// State returns the current state of a stream
func (t *Tracker) State(id string) (State, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if info, ok := t.states[id]; ok {
		return info.State, true
	}
	return StateIdle, false
}

// Info returns a copy of everything known about a stream
func (t *Tracker) Info(id string) (Info, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	info, ok := t.states[id]
	if !ok {
		return Info{}, false
	}
	return *info, true
}

// Active returns the IDs of streams that have not ended
func (t *Tracker) Active() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var ids []string
	for id, info := range t.states {
		if !info.State.Terminal() {
			ids = append(ids, id)
		}
	}
	return ids
}

// Cleanup removes ended streams older than the given duration
func (t *Tracker) Cleanup(olderThan time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	for id, info := range t.states {
		if info.State.Terminal() && now.Sub(info.EndTime) > olderThan {
			delete(t.states, id)
		}
	}
}
