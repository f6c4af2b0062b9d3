package migration

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates a dependency or lookup names an unregistered migration
	ErrNotFound = errors.New("migration not found")

	// ErrCircularDependency indicates the dependency graph contains a cycle
	ErrCircularDependency = errors.New("circular dependency")

	// ErrNotReversible indicates a backward plan includes a migration without a backward form
	ErrNotReversible = errors.New("migration is not reversible")

	// ErrExecutionFailed indicates a statement, transaction or state update failed during a run
	ErrExecutionFailed = errors.New("migration execution failed")

	// ErrUnsupported indicates an operation cannot be rendered on the selected backend
	ErrUnsupported = errors.New("operation not supported by backend")
)

// NotFoundError reports an unregistered migration name.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("migration not found: %s", e.Name)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// CircularDependencyError reports the migration at which a cycle was detected.
type CircularDependencyError struct {
	Name string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("circular dependency detected at: %s", e.Name)
}

func (e *CircularDependencyError) Is(target error) bool {
	return target == ErrCircularDependency
}

// NotReversibleError reports a migration that cannot be rolled back.
type NotReversibleError struct {
	Name string
}

func (e *NotReversibleError) Error() string {
	return fmt.Sprintf("migration is not reversible: %s", e.Name)
}

func (e *NotReversibleError) Is(target error) bool {
	return target == ErrNotReversible
}

// ExecutionError reports a failure while running a migration. Completed lists
// the migrations that finished, in order, before Migration failed.
type ExecutionError struct {
	Migration string
	Err       error
	Completed []string
}

func (e *ExecutionError) Error() string {
	msg := fmt.Sprintf("migration %s failed: %v", e.Migration, e.Err)
	if len(e.Completed) > 0 {
		msg += fmt.Sprintf(" (completed: %s)", strings.Join(e.Completed, ", "))
	}
	return msg
}

// Unwrap returns the underlying error
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

func (e *ExecutionError) Is(target error) bool {
	return target == ErrExecutionFailed
}

// UnsupportedError reports an operation that cannot render on a backend.
type UnsupportedError struct {
	Migration string
	Operation string
	Backend   string
	Err       error
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("migration %s: %s: not supported by %s: %v", e.Migration, e.Operation, e.Backend, e.Err)
}

// Unwrap returns the underlying error
func (e *UnsupportedError) Unwrap() error {
	return e.Err
}

func (e *UnsupportedError) Is(target error) bool {
	return target == ErrUnsupported
}

// StateError reports a state store failure outside of a migration run.
type StateError struct {
	Op  string
	Err error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("state store: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *StateError) Unwrap() error {
	return e.Err
}
