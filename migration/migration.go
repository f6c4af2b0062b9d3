// Package migration resolves, plans and runs schema migrations.
//
// A Migration bundles operations under a unique name. A Registry holds every
// known migration and orders them by dependency. A Migrator compares that
// order with a StateStore to decide what to apply or roll back, and drives
// execution through caller-supplied statement and transaction callbacks.
package migration

import (
	"fmt"

	"github.com/lockplane/lockstep/database"
	"github.com/lockplane/lockstep/operation"
)

// Migration is a named, ordered bundle of operations.
//
// Backward operations, when set, are run verbatim and in the given order on
// rollback. Otherwise the rollback is derived from the forward operations,
// reversed, each replaced by its own backward form.
type Migration struct {
	name         string
	dependencies []string
	forward      []operation.Operation
	backward     []operation.Operation
	hasBackward  bool
	atomic       bool
}

// New returns an empty atomic migration named name.
func New(name string) *Migration {
	return &Migration{name: name, atomic: true}
}

// DependsOn adds migrations that must be applied first.
func (m *Migration) DependsOn(names ...string) *Migration {
	m.dependencies = append(m.dependencies, names...)
	return m
}

// Operation appends forward operations.
func (m *Migration) Operation(ops ...operation.Operation) *Migration {
	m.forward = append(m.forward, ops...)
	return m
}

// ForwardOps replaces the forward operations.
func (m *Migration) ForwardOps(ops ...operation.Operation) *Migration {
	m.forward = ops
	return m
}

// BackwardOps sets explicit backward operations. They are used as given, not
// reversed.
func (m *Migration) BackwardOps(ops ...operation.Operation) *Migration {
	m.backward = ops
	m.hasBackward = true
	return m
}

// Atomic controls whether the migration may run inside a transaction. Set it
// to false for statements that cannot run in one, such as concurrent index
// builds.
func (m *Migration) Atomic(atomic bool) *Migration {
	m.atomic = atomic
	return m
}

func (m *Migration) Name() string { return m.name }

func (m *Migration) Dependencies() []string { return m.dependencies }

func (m *Migration) IsAtomic() bool { return m.atomic }

func (m *Migration) ForwardOperations() []operation.Operation { return m.forward }

// BackwardOperations returns the explicit backward operations, if any.
func (m *Migration) BackwardOperations() ([]operation.Operation, bool) {
	return m.backward, m.hasBackward
}

// IsReversible reports whether the migration can be rolled back.
func (m *Migration) IsReversible() bool {
	if m.hasBackward {
		return true
	}
	for _, op := range m.forward {
		if !op.Reversible() {
			return false
		}
	}
	return true
}

// ForwardSQL renders the forward operations in order.
func (m *Migration) ForwardSQL(b database.Backend) []string {
	var stmts []string
	for _, op := range m.forward {
		stmts = append(stmts, op.Forward(b)...)
	}
	return stmts
}

// BackwardSQL renders the rollback statements. The bool is false when the
// migration is not reversible.
func (m *Migration) BackwardSQL(b database.Backend) ([]string, bool) {
	if m.hasBackward {
		var stmts []string
		for _, op := range m.backward {
			stmts = append(stmts, op.Forward(b)...)
		}
		return stmts, true
	}

	if !m.IsReversible() {
		return nil, false
	}

	var stmts []string
	for i := len(m.forward) - 1; i >= 0; i-- {
		if back, ok := m.forward[i].Backward(b); ok {
			stmts = append(stmts, back...)
		}
	}
	return stmts, true
}

// ValidateForward checks that every forward operation can render on b.
func (m *Migration) ValidateForward(b database.Backend) error {
	for _, op := range m.forward {
		if err := operation.Validate(op, b); err != nil {
			return m.unsupported(op, b, err)
		}
	}
	return nil
}

// ValidateBackward checks that the rollback can render on b: the explicit
// backward operations when set, otherwise the backward form of every forward
// operation. Irreversible migrations are not checked; planning rejects them.
func (m *Migration) ValidateBackward(b database.Backend) error {
	if m.hasBackward {
		for _, op := range m.backward {
			if err := operation.Validate(op, b); err != nil {
				return m.unsupported(op, b, err)
			}
		}
		return nil
	}

	if !m.IsReversible() {
		return nil
	}
	for _, op := range m.forward {
		if err := operation.ValidateBackward(op, b); err != nil {
			return m.unsupported(op, b, err)
		}
	}
	return nil
}

// Validate checks both directions.
func (m *Migration) Validate(b database.Backend) error {
	if err := m.ValidateForward(b); err != nil {
		return err
	}
	return m.ValidateBackward(b)
}

func (m *Migration) unsupported(op operation.Operation, b database.Backend, err error) error {
	return &UnsupportedError{
		Migration: m.name,
		Operation: op.Describe(),
		Backend:   b.Name(),
		Err:       err,
	}
}

func (m *Migration) String() string {
	backward := "none"
	if m.hasBackward {
		backward = fmt.Sprintf("%d operations", len(m.backward))
	}
	return fmt.Sprintf("Migration{name: %s, dependencies: %v, forward: %d operations, backward: %s, atomic: %t}",
		m.name, m.dependencies, len(m.forward), backward, m.atomic)
}
