package runner

import (
	"fmt"
	"sync"
)

// MemoryStore keeps the last runs in memory.
type MemoryStore struct {
	max int

	mu   sync.Mutex
	runs []RunStatus
}

// NewMemoryStore creates a store keeping at most max runs. max <= 0 keeps
// every run.
func NewMemoryStore(max int) *MemoryStore {
	return &MemoryStore{max: max}
}

func (s *MemoryStore) History() []RunStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := make([]RunStatus, len(s.runs))
	for i, run := range s.runs {
		history[i] = run.Summary()
	}
	return history
}

func (s *MemoryStore) Get(id string) (RunStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, run := range s.runs {
		if run.ID == id {
			return run, nil
		}
	}
	return RunStatus{}, fmt.Errorf("%w %q", ErrUnknownRun, id)
}

func (s *MemoryStore) Save(run RunStatus) error {
	if run.ID == "" {
		return fmt.Errorf("cannot save a run without an id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs = append([]RunStatus{run}, s.runs...)
	if s.max > 0 && len(s.runs) > s.max {
		s.runs = s.runs[:s.max]
	}
	return nil
}
