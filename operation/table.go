package operation

import (
	"fmt"

	"github.com/lockplane/lockstep/database"
)

// CreateTableOp creates a table.
type CreateTableOp struct {
	Table  string
	Fields []database.Field
}

// CreateTable returns an operation creating table name with fields.
func CreateTable(name string, fields ...database.Field) *CreateTableOp {
	return &CreateTableOp{Table: name, Fields: fields}
}

// Field appends a column definition.
func (o *CreateTableOp) Field(f database.Field) *CreateTableOp {
	o.Fields = append(o.Fields, f)
	return o
}

func (o *CreateTableOp) Forward(b database.Backend) []string {
	return b.CreateTable(o.Table, o.Fields)
}

func (o *CreateTableOp) Backward(b database.Backend) ([]string, bool) {
	return []string{b.DropTable(o.Table)}, true
}

func (o *CreateTableOp) Describe() string {
	return fmt.Sprintf("Create table %s", o.Table)
}

func (o *CreateTableOp) Reversible() bool { return true }

// DropTableOp drops a table. It can only be reversed when the table's columns
// were supplied with WithFields.
type DropTableOp struct {
	Table  string
	Fields []database.Field
}

// DropTable returns an operation dropping table name.
func DropTable(name string) *DropTableOp {
	return &DropTableOp{Table: name}
}

// WithFields records the dropped table's columns so the drop can be undone.
func (o *DropTableOp) WithFields(fields ...database.Field) *DropTableOp {
	o.Fields = fields
	return o
}

func (o *DropTableOp) Forward(b database.Backend) []string {
	return []string{b.DropTable(o.Table)}
}

func (o *DropTableOp) Backward(b database.Backend) ([]string, bool) {
	if o.Fields == nil {
		return nil, false
	}
	return b.CreateTable(o.Table, o.Fields), true
}

func (o *DropTableOp) Describe() string {
	return fmt.Sprintf("Drop table %s", o.Table)
}

func (o *DropTableOp) Reversible() bool { return o.Fields != nil }

// RenameTableOp renames a table.
type RenameTableOp struct {
	From string
	To   string
}

// RenameTable returns an operation renaming table from to to.
func RenameTable(from, to string) *RenameTableOp {
	return &RenameTableOp{From: from, To: to}
}

func (o *RenameTableOp) Forward(b database.Backend) []string {
	return []string{b.RenameTable(o.From, o.To)}
}

func (o *RenameTableOp) Backward(b database.Backend) ([]string, bool) {
	return []string{b.RenameTable(o.To, o.From)}, true
}

func (o *RenameTableOp) Describe() string {
	return fmt.Sprintf("Rename table %s to %s", o.From, o.To)
}

func (o *RenameTableOp) Reversible() bool { return true }
