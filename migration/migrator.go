package migration

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/lockplane/lockstep/database"
)

// ExecFunc executes a single statement.
type ExecFunc func(ctx context.Context, statement string) error

// TxHooks are the transaction callbacks used around each atomic migration on
// backends with transactional DDL. Nil hooks do nothing.
type TxHooks struct {
	Begin    func(ctx context.Context) error
	Commit   func(ctx context.Context) error
	Rollback func(ctx context.Context) error
}

func (h TxHooks) begin(ctx context.Context) error {
	if h.Begin == nil {
		return nil
	}
	return h.Begin(ctx)
}

func (h TxHooks) commit(ctx context.Context) error {
	if h.Commit == nil {
		return nil
	}
	return h.Commit(ctx)
}

func (h TxHooks) rollback(ctx context.Context) error {
	if h.Rollback == nil {
		return nil
	}
	return h.Rollback(ctx)
}

// MigrationSQL is the rendered SQL of one planned migration.
type MigrationSQL struct {
	Name       string
	Statements []string
}

// Status describes a registered migration.
type Status struct {
	Name         string
	Dependencies []string
	Applied      bool
	Reversible   bool
	Atomic       bool
}

// Option configures a Migrator.
type Option func(*Migrator)

// WithLogger sets the logger used for progress output. By default the
// migrator logs nothing.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Migrator) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// Migrator plans and runs migrations from a Registry against one backend,
// recording progress in a StateStore. It keeps no state of its own: the
// applied set is read from the store on every call.
//
// Context values are passed through to the store and to every callback. The
// migrator never checks for cancellation itself; timeouts belong in the
// callbacks.
type Migrator struct {
	registry *Registry
	backend  database.Backend
	state    StateStore
	logger   *slog.Logger
}

// NewMigrator returns a Migrator for registry on backend.
func NewMigrator(registry *Registry, backend database.Backend, state StateStore, opts ...Option) *Migrator {
	m := &Migrator{
		registry: registry,
		backend:  backend,
		state:    state,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the migrator's state store.
func (m *Migrator) State() StateStore {
	return m.state
}

func (m *Migrator) applied(ctx context.Context) (map[string]bool, error) {
	names, err := m.state.AppliedMigrations(ctx)
	if err != nil {
		return nil, &StateError{Op: "read applied migrations", Err: err}
	}

	set := make(map[string]bool, len(names))
	for _, name := range names {
		set[name] = true
	}
	return set, nil
}

// PlanForward returns the registered migrations that are not applied yet, in
// dependency order.
func (m *Migrator) PlanForward(ctx context.Context) ([]string, error) {
	order, err := m.registry.ResolveOrder()
	if err != nil {
		return nil, err
	}

	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	plan := make([]string, 0, len(order))
	for _, name := range order {
		if !applied[name] {
			plan = append(plan, name)
		}
	}
	return plan, nil
}

// PlanBackward returns the applied migrations in reverse dependency order.
//
// When target is non-empty and appears in that list, the list ends with
// target, so target itself is rolled back. A target that does not appear is
// ignored and every applied migration is returned.
//
// Every returned migration must be reversible; otherwise PlanBackward fails
// with *NotReversibleError naming the first one that is not.
func (m *Migrator) PlanBackward(ctx context.Context, target string) ([]string, error) {
	order, err := m.registry.ResolveOrder()
	if err != nil {
		return nil, err
	}

	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	plan := make([]string, 0, len(applied))
	for i := len(order) - 1; i >= 0; i-- {
		if applied[order[i]] {
			plan = append(plan, order[i])
		}
	}

	if target != "" {
		if i := slices.Index(plan, target); i >= 0 {
			plan = plan[:i+1]
		}
	}

	for _, name := range plan {
		mig, _ := m.registry.Get(name)
		if !mig.IsReversible() {
			return nil, &NotReversibleError{Name: name}
		}
	}

	return plan, nil
}

// validate checks only the direction that will run.
func (m *Migrator) validate(plan []string, dir direction) error {
	for _, name := range plan {
		mig, _ := m.registry.Get(name)

		var err error
		if dir == forward {
			err = mig.ValidateForward(m.backend)
		} else {
			err = mig.ValidateBackward(m.backend)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// ForwardSQL renders the statements MigrateForward would execute.
func (m *Migrator) ForwardSQL(ctx context.Context) ([]MigrationSQL, error) {
	plan, err := m.PlanForward(ctx)
	if err != nil {
		return nil, err
	}
	if err := m.validate(plan, forward); err != nil {
		return nil, err
	}

	out := make([]MigrationSQL, 0, len(plan))
	for _, name := range plan {
		mig, _ := m.registry.Get(name)
		out = append(out, MigrationSQL{Name: name, Statements: mig.ForwardSQL(m.backend)})
	}
	return out, nil
}

// BackwardSQL renders the statements MigrateBackward would execute.
func (m *Migrator) BackwardSQL(ctx context.Context, target string) ([]MigrationSQL, error) {
	plan, err := m.PlanBackward(ctx, target)
	if err != nil {
		return nil, err
	}
	if err := m.validate(plan, backward); err != nil {
		return nil, err
	}

	out := make([]MigrationSQL, 0, len(plan))
	for _, name := range plan {
		mig, _ := m.registry.Get(name)
		stmts, _ := mig.BackwardSQL(m.backend)
		out = append(out, MigrationSQL{Name: name, Statements: stmts})
	}
	return out, nil
}

// Status reports every registered migration in dependency order.
func (m *Migrator) Status(ctx context.Context) ([]Status, error) {
	order, err := m.registry.ResolveOrder()
	if err != nil {
		return nil, err
	}

	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	statuses := make([]Status, 0, len(order))
	for _, name := range order {
		mig, _ := m.registry.Get(name)
		statuses = append(statuses, Status{
			Name:         name,
			Dependencies: mig.Dependencies(),
			Applied:      applied[name],
			Reversible:   mig.IsReversible(),
			Atomic:       mig.IsAtomic(),
		})
	}
	return statuses, nil
}

// MigrateForward applies pending migrations without transaction hooks. See
// MigrateForwardTx.
func (m *Migrator) MigrateForward(ctx context.Context, exec ExecFunc) ([]string, error) {
	return m.MigrateForwardTx(ctx, exec, TxHooks{})
}

// MigrateForwardTx applies pending migrations in plan order and returns the
// names applied by this call.
//
// On backends with transactional DDL each atomic migration is wrapped in
// hooks.Begin and hooks.Commit. The first failure stops the run: the open
// transaction, if any, is rolled back once and its rollback error dropped, and
// an *ExecutionError is returned alongside the migrations completed before it.
func (m *Migrator) MigrateForwardTx(ctx context.Context, exec ExecFunc, hooks TxHooks) ([]string, error) {
	plan, err := m.PlanForward(ctx)
	if err != nil {
		return nil, err
	}
	if err := m.validate(plan, forward); err != nil {
		return nil, err
	}

	return m.run(ctx, plan, forward, exec, hooks)
}

// MigrateBackward rolls back applied migrations without transaction hooks.
// See MigrateBackwardTx.
func (m *Migrator) MigrateBackward(ctx context.Context, target string, exec ExecFunc) ([]string, error) {
	return m.MigrateBackwardTx(ctx, target, exec, TxHooks{})
}

// MigrateBackwardTx rolls back the migrations returned by PlanBackward and
// returns the names unapplied by this call. Failure handling matches
// MigrateForwardTx.
func (m *Migrator) MigrateBackwardTx(ctx context.Context, target string, exec ExecFunc, hooks TxHooks) ([]string, error) {
	plan, err := m.PlanBackward(ctx, target)
	if err != nil {
		return nil, err
	}
	if err := m.validate(plan, backward); err != nil {
		return nil, err
	}

	return m.run(ctx, plan, backward, exec, hooks)
}

type direction int

const (
	forward direction = iota
	backward
)

func (d direction) String() string {
	if d == backward {
		return "backward"
	}
	return "forward"
}

func (m *Migrator) run(ctx context.Context, plan []string, dir direction, exec ExecFunc, hooks TxHooks) ([]string, error) {
	useTx := m.backend.SupportsFeature(database.FeatureTransactionalDDL)
	completed := make([]string, 0, len(plan))

	m.logger.Info("starting migration run",
		"direction", dir.String(),
		"backend", m.backend.Name(),
		"migrations", len(plan),
		"transactional", useTx)

	fail := func(name string, err error) ([]string, error) {
		m.logger.Error("migration failed", "migration", name, "direction", dir.String(), "error", err)
		return completed, &ExecutionError{Migration: name, Err: err, Completed: slices.Clone(completed)}
	}

	for _, name := range plan {
		mig, _ := m.registry.Get(name)
		wrap := useTx && mig.IsAtomic()
		start := time.Now()

		m.logger.Debug("running migration", "migration", name, "direction", dir.String(), "wrapped", wrap)

		if wrap {
			if err := hooks.begin(ctx); err != nil {
				return fail(name, fmt.Errorf("begin transaction: %w", err))
			}
		}

		var stmts []string
		if dir == forward {
			stmts = mig.ForwardSQL(m.backend)
		} else {
			stmts, _ = mig.BackwardSQL(m.backend)
		}

		for i, stmt := range stmts {
			m.logger.Debug("executing statement", "migration", name, "index", i, "sql", stmt)
			if err := exec(ctx, stmt); err != nil {
				if wrap {
					m.rollback(ctx, hooks, name)
				}
				return fail(name, err)
			}
		}

		if wrap {
			if err := hooks.commit(ctx); err != nil {
				m.rollback(ctx, hooks, name)
				return fail(name, fmt.Errorf("commit transaction: %w", err))
			}
		}

		var err error
		if dir == forward {
			err = m.state.MarkApplied(ctx, name)
		} else {
			err = m.state.MarkUnapplied(ctx, name)
		}
		if err != nil {
			return fail(name, err)
		}

		completed = append(completed, name)

		if dir == forward {
			m.logger.Info("migration applied", "migration", name, "statements", len(stmts), "duration", time.Since(start))
		} else {
			m.logger.Info("migration rolled back", "migration", name, "statements", len(stmts), "duration", time.Since(start))
		}
	}

	return completed, nil
}

// rollback is best-effort: its error never replaces the failure that caused it.
func (m *Migrator) rollback(ctx context.Context, hooks TxHooks, name string) {
	if err := hooks.rollback(ctx); err != nil {
		m.logger.Warn("rollback failed", "migration", name, "error", err)
	}
}
