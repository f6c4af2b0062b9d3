package operation

import (
	"fmt"

	"github.com/lockplane/lockstep/database"
)

// AddFieldOp adds a column to a table.
type AddFieldOp struct {
	Table string
	Field database.Field
}

// AddField returns an operation adding field to table.
func AddField(table string, field database.Field) *AddFieldOp {
	return &AddFieldOp{Table: table, Field: field}
}

func (o *AddFieldOp) Forward(b database.Backend) []string {
	return b.AddColumn(o.Table, o.Field)
}

// Backward drops the column again. There is no backward form on backends that
// cannot drop columns.
func (o *AddFieldOp) Backward(b database.Backend) ([]string, bool) {
	if !b.SupportsFeature(database.FeatureDropColumn) {
		return nil, false
	}
	return b.DropColumn(o.Table, o.Field.Name), true
}

func (o *AddFieldOp) Describe() string {
	return fmt.Sprintf("Add field %s to %s", o.Field.Name, o.Table)
}

func (o *AddFieldOp) Reversible() bool { return true }

// RemoveFieldOp drops a column.
type RemoveFieldOp struct {
	Table      string
	Name       string
	Definition *database.Field
}

// RemoveField returns an operation dropping column name from table.
func RemoveField(table, name string) *RemoveFieldOp {
	return &RemoveFieldOp{Table: table, Name: name}
}

// WithDefinition records the dropped column so the removal can be undone.
func (o *RemoveFieldOp) WithDefinition(field database.Field) *RemoveFieldOp {
	o.Definition = &field
	return o
}

func (o *RemoveFieldOp) Forward(b database.Backend) []string {
	return b.DropColumn(o.Table, o.Name)
}

func (o *RemoveFieldOp) Backward(b database.Backend) ([]string, bool) {
	if o.Definition == nil {
		return nil, false
	}
	return b.AddColumn(o.Table, *o.Definition), true
}

func (o *RemoveFieldOp) Describe() string {
	return fmt.Sprintf("Remove field %s from %s", o.Name, o.Table)
}

func (o *RemoveFieldOp) Reversible() bool { return o.Definition != nil }

// Validate fails on backends without DROP COLUMN support.
func (o *RemoveFieldOp) Validate(b database.Backend) error {
	if !b.SupportsFeature(database.FeatureDropColumn) {
		return fmt.Errorf("%s does not support dropping columns", b.Name())
	}
	return nil
}

// RenameFieldOp renames a column.
type RenameFieldOp struct {
	Table string
	From  string
	To    string
}

// RenameField returns an operation renaming column from to to on table.
func RenameField(table, from, to string) *RenameFieldOp {
	return &RenameFieldOp{Table: table, From: from, To: to}
}

func (o *RenameFieldOp) Forward(b database.Backend) []string {
	return b.RenameColumn(o.Table, o.From, o.To)
}

func (o *RenameFieldOp) Backward(b database.Backend) ([]string, bool) {
	return b.RenameColumn(o.Table, o.To, o.From), true
}

func (o *RenameFieldOp) Describe() string {
	return fmt.Sprintf("Rename field %s to %s on %s", o.From, o.To, o.Table)
}

func (o *RenameFieldOp) Reversible() bool { return true }

// AlterFieldOp changes a column in place. It is reversible only when the
// reverse changes were supplied with WithReverse.
type AlterFieldOp struct {
	Table   string
	Name    string
	Changes database.FieldChanges
	Reverse *database.FieldChanges
}

// AlterField returns an operation altering column name on table. Use the
// Set*/DropDefault methods to describe the change.
func AlterField(table, name string) *AlterFieldOp {
	return &AlterFieldOp{Table: table, Name: name}
}

func (o *AlterFieldOp) SetType(t database.FieldType) *AlterFieldOp {
	o.Changes = o.Changes.SetType(t)
	return o
}

func (o *AlterFieldOp) SetNullable(nullable bool) *AlterFieldOp {
	o.Changes = o.Changes.SetNullable(nullable)
	return o
}

func (o *AlterFieldOp) SetDefault(expr string) *AlterFieldOp {
	o.Changes = o.Changes.SetDefault(expr)
	return o
}

func (o *AlterFieldOp) DropDefault() *AlterFieldOp {
	o.Changes = o.Changes.DropDefault()
	return o
}

// WithReverse sets the changes that undo this alteration.
func (o *AlterFieldOp) WithReverse(changes database.FieldChanges) *AlterFieldOp {
	o.Reverse = &changes
	return o
}

func (o *AlterFieldOp) Forward(b database.Backend) []string {
	return b.AlterColumn(o.Table, o.Name, o.Changes)
}

func (o *AlterFieldOp) Backward(b database.Backend) ([]string, bool) {
	if o.Reverse == nil {
		return nil, false
	}
	return b.AlterColumn(o.Table, o.Name, *o.Reverse), true
}

func (o *AlterFieldOp) Describe() string {
	return fmt.Sprintf("Alter field %s on %s", o.Name, o.Table)
}

func (o *AlterFieldOp) Reversible() bool { return o.Reverse != nil }

// Validate fails on backends that cannot alter columns, or that cannot
// express the requested changes.
func (o *AlterFieldOp) Validate(b database.Backend) error {
	if !b.SupportsFeature(database.FeatureAlterColumn) {
		return fmt.Errorf("%s does not support altering columns", b.Name())
	}

	cv, ok := b.(database.ChangeValidator)
	if !ok {
		return nil
	}
	if err := cv.ValidateChanges(o.Changes); err != nil {
		return err
	}
	if o.Reverse != nil {
		if err := cv.ValidateChanges(*o.Reverse); err != nil {
			return fmt.Errorf("reverse: %w", err)
		}
	}
	return nil
}
