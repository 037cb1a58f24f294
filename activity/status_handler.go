package activity

import (
	"sync"

	"github.com/nomis52/demoseed/workflow"
)

// StatusHandler collects the last status each step of a run reported. The
// runner reads it while the run is in flight, so it is safe for concurrent
// use.
type StatusHandler struct {
	mu   sync.RWMutex
	last map[workflow.ActivityID]string
}

func NewStatusHandler() *StatusHandler {
	return &StatusHandler{last: map[workflow.ActivityID]string{}}
}

func (h *StatusHandler) Set(id workflow.ActivityID, status string) {
	h.mu.Lock()
	h.last[id] = status
	h.mu.Unlock()
}

// Get returns "" for a step that has not reported anything.
func (h *StatusHandler) Get(id workflow.ActivityID) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.last[id]
}

// Entry is one line of a run summary.
type Entry struct {
	ID     workflow.ActivityID
	State  workflow.ActivityState
	Status string
	Err    error
}

// Summary lists the steps in order with their result and last status. A
// step missing from results is reported as NotStarted.
func (h *StatusHandler) Summary(order []workflow.ActivityID, results map[workflow.ActivityID]*workflow.Result) []Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	entries := make([]Entry, len(order))
	for i, id := range order {
		entries[i] = Entry{ID: id, Status: h.last[id]}
		if r, ok := results[id]; ok && r != nil {
			entries[i].State, entries[i].Err = r.State, r.Error
		}
	}
	return entries
}
