package migration

import (
	"context"
	"slices"
	"sync"
)

// StateStore records which migrations have been applied.
//
// AppliedMigrations must return names in application order. MarkApplied and
// MarkUnapplied must be idempotent.
type StateStore interface {
	AppliedMigrations(ctx context.Context) ([]string, error)
	MarkApplied(ctx context.Context, name string) error
	MarkUnapplied(ctx context.Context, name string) error
}

// MemoryState is an in-memory StateStore, mainly for tests and dry runs.
type MemoryState struct {
	mu      sync.Mutex
	applied []string
}

// NewMemoryState returns a store that already considers applied applied.
func NewMemoryState(applied ...string) *MemoryState {
	s := &MemoryState{}
	for _, name := range applied {
		s.add(name)
	}
	return s
}

func (s *MemoryState) add(name string) {
	if !slices.Contains(s.applied, name) {
		s.applied = append(s.applied, name)
	}
}

func (s *MemoryState) AppliedMigrations(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.applied), nil
}

func (s *MemoryState) MarkApplied(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.add(name)
	return nil
}

func (s *MemoryState) MarkUnapplied(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applied = slices.DeleteFunc(s.applied, func(n string) bool { return n == name })
	return nil
}
