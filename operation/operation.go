// Package operation defines the units of schema change that make up a
// migration. Each operation renders itself through a database.Backend and
// knows whether, and how, it can be undone.
package operation

import (
	"fmt"

	"github.com/lockplane/lockstep/database"
)

// Operation is a single schema change.
type Operation interface {
	// Forward renders the statements that apply the change.
	Forward(b database.Backend) []string

	// Backward renders the statements that undo the change. The bool is false
	// when the operation has no backward form on b.
	Backward(b database.Backend) ([]string, bool)

	// Describe returns a short human-readable summary.
	Describe() string

	// Reversible reports whether Backward can produce statements. Operations
	// that destroy information are reversible only when the original
	// definition was attached.
	Reversible() bool
}

// Validator is implemented by operations that cannot render on every backend.
// Validate is called before any statement of a run is executed.
type Validator interface {
	Validate(b database.Backend) error
}

// Validate runs op's Validator, if it has one.
func Validate(op Operation, b database.Backend) error {
	if v, ok := op.(Validator); ok {
		return v.Validate(b)
	}
	return nil
}

// ValidateBackward checks that op can render and has a backward form on b.
func ValidateBackward(op Operation, b database.Backend) error {
	if err := Validate(op, b); err != nil {
		return err
	}
	if _, ok := op.Backward(b); !ok {
		return fmt.Errorf("no backward form on %s", b.Name())
	}
	return nil
}
