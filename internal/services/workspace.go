package services

import (
	"sync"

	"github.com/applyforge/applyforge-backend/internal/domain"
)

// Workspace holds the transient generation state for one session's active
// job. It has exactly one writer context and carries no persistence logic;
// the job context service decides when its contents become durable.
type Workspace struct {
	mu        sync.RWMutex
	state     domain.WorkspaceState
	observers []func(domain.WorkspaceState)
}

func NewWorkspace(defaults domain.WorkspaceDefaults) *Workspace {
	return &Workspace{state: domain.EmptyWorkspace(defaults)}
}

// State returns a copy of the current state.
func (w *Workspace) State() domain.WorkspaceState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// Replace swaps the whole state in one step. Hydration goes through here so
// observers never see a half-applied mix of two jobs' artifacts.
func (w *Workspace) Replace(state domain.WorkspaceState) {
	w.mu.Lock()
	w.state = state
	observers := w.observers
	w.mu.Unlock()
	for _, fn := range observers {
		fn(state)
	}
}

// Update applies a field-level mutation under the lock, notifies observers,
// and returns the resulting state.
func (w *Workspace) Update(mutate func(*domain.WorkspaceState)) domain.WorkspaceState {
	w.mu.Lock()
	mutate(&w.state)
	state := w.state
	observers := w.observers
	w.mu.Unlock()
	for _, fn := range observers {
		fn(state)
	}
	return state
}

// Clear resets to the empty default state, used when no job is active.
func (w *Workspace) Clear(defaults domain.WorkspaceDefaults) {
	w.Replace(domain.EmptyWorkspace(defaults))
}

// Subscribe registers an observer called with a state copy after each change.
func (w *Workspace) Subscribe(fn func(domain.WorkspaceState)) {
	if fn == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.observers = append(w.observers, fn)
}
