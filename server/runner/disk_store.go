package runner

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	json "github.com/goccy/go-json"
)

const runFileExt = ".json"

// DiskStore persists one JSON file per run in a directory and keeps the
// newest max runs; older files are removed.
type DiskStore struct {
	dir    string
	max    int
	logger *slog.Logger

	mu    sync.Mutex
	runs  []RunStatus
	files map[string]string // run id -> file name
}

// NewDiskStore creates dir if needed and loads the runs already in it.
// Unreadable files are logged and skipped.
func NewDiskStore(dir string, max int, logger *slog.Logger) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}
	s := &DiskStore{dir: dir, max: max, logger: logger}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *DiskStore) History() []RunStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := make([]RunStatus, len(s.runs))
	for i, run := range s.runs {
		history[i] = run.Summary()
	}
	return history
}

func (s *DiskStore) Get(id string) (RunStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, run := range s.runs {
		if run.ID == id {
			return run, nil
		}
	}
	return RunStatus{}, fmt.Errorf("%w %q", ErrUnknownRun, id)
}

func (s *DiskStore) Save(run RunStatus) error {
	if run.ID == "" || run.StartedAt == nil {
		return fmt.Errorf("cannot save a run without an id and start time")
	}
	name := fileName(run)
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling run %s: %w", run.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return fmt.Errorf("writing run %s: %w", run.ID, err)
	}
	s.runs = append([]RunStatus{run}, s.runs...)
	s.files[run.ID] = name
	s.prune()
	s.logger.Debug("saved run", "id", run.ID, "file", name)
	return nil
}

// Reload re-reads the directory.
func (s *DiskStore) Reload() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("reading state directory: %w", err)
	}

	var runs []RunStatus
	files := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != runFileExt {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("skipping unreadable run file", "file", path, "error", err)
			continue
		}
		var run RunStatus
		if err := json.Unmarshal(data, &run); err != nil || run.ID == "" || run.StartedAt == nil {
			s.logger.Warn("skipping invalid run file", "file", path, "error", err)
			continue
		}
		runs = append(runs, run)
		files[run.ID] = e.Name()
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(*runs[j].StartedAt)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = runs
	s.files = files
	s.prune()
	s.logger.Info("loaded run history", "dir", s.dir, "runs", len(s.runs))
	return nil
}

// prune drops the runs beyond max, oldest first. Callers hold mu.
func (s *DiskStore) prune() {
	if s.max <= 0 || len(s.runs) <= s.max {
		return
	}
	for _, old := range s.runs[s.max:] {
		name := s.files[old.ID]
		delete(s.files, old.ID)
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove old run", "file", name, "error", err)
		}
	}
	s.runs = s.runs[:s.max]
}

// fileName sorts by start time and stays unique per run.
func fileName(run RunStatus) string {
	id := run.ID
	if i := strings.IndexByte(id, '-'); i > 0 {
		id = id[:i]
	}
	return run.StartedAt.UTC().Format("2006-01-02T15-04-05Z") + "_" + id + runFileExt
}
