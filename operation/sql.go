package operation

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/lockplane/lockstep/database"
)

type portableSQL struct {
	forward  []string
	backward []string
	reverse  bool
}

// RunSQLOp runs literal SQL. The SQL is either static, optionally restricted
// to some backends with OnlyFor, or portable: keyed by backend name.
type RunSQLOp struct {
	forward     []string
	backward    []string
	reverse     bool
	only        []string
	portable    map[string]portableSQL
	description string
}

// RunSQL returns an operation running stmts on every backend. It is not
// reversible unless WithReverse is used.
func RunSQL(stmts ...string) *RunSQLOp {
	return &RunSQLOp{forward: stmts}
}

// ReversibleSQL returns an operation running forward, undone by backward.
func ReversibleSQL(forward, backward string) *RunSQLOp {
	return &RunSQLOp{forward: []string{forward}, backward: []string{backward}, reverse: true}
}

// PortableSQL returns an operation whose SQL is chosen by backend name. Add
// variants with For and ForReversible.
func PortableSQL() *RunSQLOp {
	return &RunSQLOp{portable: map[string]portableSQL{}}
}

// For sets the statements run on the named backend.
func (o *RunSQLOp) For(backend string, stmts ...string) *RunSQLOp {
	if o.portable == nil {
		o.portable = map[string]portableSQL{}
	}
	o.portable[backend] = portableSQL{forward: stmts}
	return o
}

// ForReversible sets the forward and backward statement for the named backend.
func (o *RunSQLOp) ForReversible(backend, forward, backward string) *RunSQLOp {
	if o.portable == nil {
		o.portable = map[string]portableSQL{}
	}
	o.portable[backend] = portableSQL{forward: []string{forward}, backward: []string{backward}, reverse: true}
	return o
}

// ForStatements sets forward and backward statement lists for the named
// backend.
func (o *RunSQLOp) ForStatements(backend string, forward, backward []string) *RunSQLOp {
	if o.portable == nil {
		o.portable = map[string]portableSQL{}
	}
	o.portable[backend] = portableSQL{forward: forward, backward: backward, reverse: true}
	return o
}

// OnlyFor restricts static SQL to the named backends. On any other backend
// the operation renders nothing.
func (o *RunSQLOp) OnlyFor(backends ...string) *RunSQLOp {
	o.only = backends
	return o
}

// WithReverse sets the statements that undo static SQL.
func (o *RunSQLOp) WithReverse(stmts ...string) *RunSQLOp {
	o.backward = stmts
	o.reverse = true
	return o
}

// WithDescription overrides the default description.
func (o *RunSQLOp) WithDescription(text string) *RunSQLOp {
	o.description = text
	return o
}

func (o *RunSQLOp) isPortable() bool {
	return o.portable != nil
}

func (o *RunSQLOp) skipped(b database.Backend) bool {
	return len(o.only) > 0 && !slices.Contains(o.only, b.Name())
}

func (o *RunSQLOp) Forward(b database.Backend) []string {
	if o.isPortable() {
		return o.portable[b.Name()].forward
	}
	if o.skipped(b) {
		return nil
	}
	return o.forward
}

func (o *RunSQLOp) Backward(b database.Backend) ([]string, bool) {
	if o.isPortable() {
		p, ok := o.portable[b.Name()]
		if !ok || !p.reverse {
			return nil, false
		}
		return p.backward, true
	}
	if !o.reverse {
		return nil, false
	}
	if o.skipped(b) {
		return nil, true
	}
	return o.backward, true
}

func (o *RunSQLOp) Describe() string {
	if o.description != "" {
		return o.description
	}
	if o.isPortable() {
		return "Run portable SQL"
	}
	return "Run custom SQL"
}

// Reversible reports whether a backward form exists. Portable SQL is
// reversible when any variant has reverse SQL; a backend whose variant has
// none fails ValidateBackward instead.
func (o *RunSQLOp) Reversible() bool {
	if !o.isPortable() {
		return o.reverse
	}
	for _, p := range o.portable {
		if p.reverse {
			return true
		}
	}
	return false
}

// Validate fails when portable SQL has no variant for b.
func (o *RunSQLOp) Validate(b database.Backend) error {
	if !o.isPortable() {
		return nil
	}
	if _, ok := o.portable[b.Name()]; ok {
		return nil
	}

	names := make([]string, 0, len(o.portable))
	for name := range o.portable {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Errorf("no SQL for backend %s (have: %s)", b.Name(), strings.Join(names, ", "))
}
