package operation

import (
	"fmt"

	"github.com/lockplane/lockstep/database"
)

// AddConstraintOp adds a table constraint.
type AddConstraintOp struct {
	Table      string
	Constraint database.Constraint
}

// AddConstraint returns an operation adding c to table.
func AddConstraint(table string, c database.Constraint) *AddConstraintOp {
	return &AddConstraintOp{Table: table, Constraint: c}
}

func (o *AddConstraintOp) Forward(b database.Backend) []string {
	return []string{b.AddConstraint(o.Table, o.Constraint)}
}

func (o *AddConstraintOp) Backward(b database.Backend) ([]string, bool) {
	return []string{b.DropConstraint(o.Table, o.Constraint.Name)}, true
}

func (o *AddConstraintOp) Describe() string {
	return fmt.Sprintf("Add constraint %s to %s", o.Constraint.Name, o.Table)
}

func (o *AddConstraintOp) Reversible() bool { return true }

// RemoveConstraintOp drops a table constraint.
type RemoveConstraintOp struct {
	Table      string
	Name       string
	Definition *database.Constraint
}

// RemoveConstraint returns an operation dropping constraint name from table.
func RemoveConstraint(table, name string) *RemoveConstraintOp {
	return &RemoveConstraintOp{Table: table, Name: name}
}

// WithDefinition records the dropped constraint so the removal can be undone.
func (o *RemoveConstraintOp) WithDefinition(c database.Constraint) *RemoveConstraintOp {
	o.Definition = &c
	return o
}

func (o *RemoveConstraintOp) Forward(b database.Backend) []string {
	return []string{b.DropConstraint(o.Table, o.Name)}
}

func (o *RemoveConstraintOp) Backward(b database.Backend) ([]string, bool) {
	if o.Definition == nil {
		return nil, false
	}
	return []string{b.AddConstraint(o.Table, *o.Definition)}, true
}

func (o *RemoveConstraintOp) Describe() string {
	return fmt.Sprintf("Remove constraint %s from %s", o.Name, o.Table)
}

func (o *RemoveConstraintOp) Reversible() bool { return o.Definition != nil }
