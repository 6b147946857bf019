// Package sessions tracks planning runs in memory so operators can see
// what the planner is working on and how recent runs ended.
package sessions

import (
	"sync"
	"time"
)

// State describes where a planning run is in its lifecycle.
type State string

const (
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Session is one planning run. ResultID links a completed session to
// the stored planning response.
type Session struct {
	ID         string     `json:"id"`
	Shift      string     `json:"shift"`
	State      State      `json:"state"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	ResultID   string     `json:"result_id,omitempty"`
	BestScore  float64    `json:"best_score,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// defaultLimit bounds how many sessions the registry keeps before the
// oldest finished ones are evicted.
const defaultLimit = 256

// Registry is a thread-safe in-memory session registry.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	order    []string // insertion order, oldest first
	limit    int
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		limit:    defaultLimit,
	}
}

// Begin registers a new running session.
func (r *Registry) Begin(id, shift string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.evictLocked()
	r.sessions[id] = &Session{
		ID:        id,
		Shift:     shift,
		State:     StateRunning,
		StartedAt: time.Now().UTC(),
	}
	r.order = append(r.order, id)
}

// Complete marks the session finished with the best score it reached
// and the id of the persisted result.
func (r *Registry) Complete(id, resultID string, bestScore float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return
	}
	now := time.Now().UTC()
	s.State = StateCompleted
	s.FinishedAt = &now
	s.ResultID = resultID
	s.BestScore = bestScore
}

// Fail marks the session failed.
func (r *Registry) Fail(id string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return
	}
	now := time.Now().UTC()
	s.State = StateFailed
	s.FinishedAt = &now
	if err != nil {
		s.Error = err.Error()
	}
}

// Get returns a copy of the session, or nil if unknown.
func (r *Registry) Get(id string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil
	}
	copy := *s
	return &copy
}

// List returns all tracked sessions, newest first.
func (r *Registry) List() []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Session, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		if s, ok := r.sessions[r.order[i]]; ok {
			result = append(result, *s)
		}
	}
	return result
}

// evictLocked drops the oldest finished sessions once the registry is
// full. Running sessions are never evicted.
func (r *Registry) evictLocked() {
	for len(r.order) >= r.limit {
		evicted := false
		for i, id := range r.order {
			if s, ok := r.sessions[id]; !ok || s.State != StateRunning {
				delete(r.sessions, id)
				r.order = append(r.order[:i], r.order[i+1:]...)
				evicted = true
				break
			}
		}
		if !evicted {
			return
		}
	}
}
