package retailsync

import (
	"sync"

	"github.com/agentstation/retailsync/pkg/errors"
	"github.com/agentstation/retailsync/pkg/reconciler"
	"github.com/agentstation/retailsync/pkg/resolver"
)

// Hook function types for run events
type (
	// RunCompletedHook is called once a run returns a result
	RunCompletedHook func(result *reconciler.Result)

	// EntityResolvedHook is called for every entity of a completed run
	EntityResolvedHook func(entity resolver.CanonicalEntity)

	// DataErrorHook is called for every record a completed run dropped
	DataErrorHook func(err *errors.DataError)
)

// hooks manages event callbacks for pipeline runs
type hooks struct {
	mu               sync.RWMutex
	onRunCompleted   []RunCompletedHook
	onEntityResolved []EntityResolvedHook
	onDataError      []DataErrorHook
}

// newHooks creates a new hooks instance
func newHooks() *hooks {
	return &hooks{}
}

// OnRunCompleted registers a callback for completed runs
func (h *hooks) OnRunCompleted(fn RunCompletedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onRunCompleted = append(h.onRunCompleted, fn)
}

// OnEntityResolved registers a callback for resolved entities
func (h *hooks) OnEntityResolved(fn EntityResolvedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onEntityResolved = append(h.onEntityResolved, fn)
}

// OnDataError registers a callback for dropped records
func (h *hooks) OnDataError(fn DataErrorHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onDataError = append(h.onDataError, fn)
}

// trigger fires the hooks for a completed run in a fixed order: data
// errors, entities, then the run itself.
func (h *hooks) trigger(result *reconciler.Result) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, de := range result.Report.Errors {
		for _, hook := range h.onDataError {
			hook(de)
		}
	}
	for _, e := range result.Entities {
		for _, hook := range h.onEntityResolved {
			hook(e)
		}
	}
	for _, hook := range h.onRunCompleted {
		hook(result)
	}
}
