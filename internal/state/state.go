// Package state stores migration state in a JSON file, for projects that
// cannot or should not keep it in the target database.
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lockplane/lockstep/migration"
)

// DefaultFile is the filename used when no state file is configured.
const DefaultFile = ".lockstep-state.json"

const formatVersion = "1"

// State is the on-disk document.
type State struct {
	Version    string  `json:"version"`
	Migrations []Entry `json:"migrations"`
}

// Entry records one applied migration.
type Entry struct {
	Name      string    `json:"name"`
	RunID     string    `json:"run_id,omitempty"` // CLI run that applied it
	AppliedAt time.Time `json:"applied_at"`
}

// FileStore is a migration.StateStore backed by a JSON file. Every call reads
// the file again, so edits made by other tools between calls are picked up.
type FileStore struct {
	mu    sync.Mutex
	path  string
	runID string
	now   func() time.Time
}

var _ migration.StateStore = (*FileStore)(nil)

// NewFileStore returns a store for path. An empty path selects DefaultFile in
// the working directory. The file is created on the first write.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultFile
	}
	return &FileStore{
		path:  path,
		runID: uuid.NewString(),
		now:   time.Now,
	}
}

// WithRunID sets the run identifier written into new entries.
func (s *FileStore) WithRunID(id string) *FileStore {
	s.runID = id
	return s
}

// Path returns the state file location.
func (s *FileStore) Path() string {
	return s.path
}

// RunID returns the run identifier written into new entries.
func (s *FileStore) RunID() string {
	return s.runID
}

// Load reads the state file. A missing file is an empty state.
func (s *FileStore) Load() (*State, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &State{Version: formatVersion}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to parse state file %s: %w", s.path, err)
	}
	if st.Version != formatVersion {
		return nil, fmt.Errorf("unsupported state file version %q in %s", st.Version, s.path)
	}

	return &st, nil
}

// Save writes st to the state file, replacing it atomically.
func (s *FileStore) Save(st *State) error {
	dir := filepath.Dir(s.path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tempFile := s.path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}

	if err := os.Rename(tempFile, s.path); err != nil {
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to save state file: %w", err)
	}

	return nil
}

// AppliedMigrations returns applied names in the order they were applied.
func (s *FileStore) AppliedMigrations(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.Load()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(st.Migrations))
	for _, e := range st.Migrations {
		names = append(names, e.Name)
	}
	return names, nil
}

// MarkApplied appends name. An already applied name keeps its entry.
func (s *FileStore) MarkApplied(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.Load()
	if err != nil {
		return err
	}

	if slices.ContainsFunc(st.Migrations, func(e Entry) bool { return e.Name == name }) {
		return nil
	}

	st.Migrations = append(st.Migrations, Entry{
		Name:      name,
		RunID:     s.runID,
		AppliedAt: s.now().UTC(),
	})
	return s.Save(st)
}

// MarkUnapplied removes name. Unknown names are ignored.
func (s *FileStore) MarkUnapplied(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.Load()
	if err != nil {
		return err
	}

	n := len(st.Migrations)
	st.Migrations = slices.DeleteFunc(st.Migrations, func(e Entry) bool { return e.Name == name })
	if len(st.Migrations) == n {
		return nil
	}
	return s.Save(st)
}
