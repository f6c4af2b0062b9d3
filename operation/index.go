package operation

import (
	"fmt"

	"github.com/lockplane/lockstep/database"
)

// AddIndexOp creates an index.
type AddIndexOp struct {
	Table string
	Index database.Index
}

// AddIndex returns an operation creating idx on table.
func AddIndex(table string, idx database.Index) *AddIndexOp {
	return &AddIndexOp{Table: table, Index: idx}
}

func (o *AddIndexOp) Forward(b database.Backend) []string {
	return []string{b.AddIndex(o.Table, o.Index)}
}

func (o *AddIndexOp) Backward(b database.Backend) ([]string, bool) {
	return []string{b.DropIndex(o.Table, o.Index.Name)}, true
}

func (o *AddIndexOp) Describe() string {
	return fmt.Sprintf("Add index %s on %s", o.Index.Name, o.Table)
}

func (o *AddIndexOp) Reversible() bool { return true }

// RemoveIndexOp drops an index.
type RemoveIndexOp struct {
	Table      string
	Name       string
	Definition *database.Index
}

// RemoveIndex returns an operation dropping index name from table.
func RemoveIndex(table, name string) *RemoveIndexOp {
	return &RemoveIndexOp{Table: table, Name: name}
}

// WithDefinition records the dropped index so the removal can be undone.
func (o *RemoveIndexOp) WithDefinition(idx database.Index) *RemoveIndexOp {
	o.Definition = &idx
	return o
}

func (o *RemoveIndexOp) Forward(b database.Backend) []string {
	return []string{b.DropIndex(o.Table, o.Name)}
}

func (o *RemoveIndexOp) Backward(b database.Backend) ([]string, bool) {
	if o.Definition == nil {
		return nil, false
	}
	return []string{b.AddIndex(o.Table, *o.Definition)}, true
}

func (o *RemoveIndexOp) Describe() string {
	return fmt.Sprintf("Remove index %s from %s", o.Name, o.Table)
}

func (o *RemoveIndexOp) Reversible() bool { return o.Definition != nil }
