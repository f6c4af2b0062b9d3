package database

// IndexOrder is the sort direction of an index column.
type IndexOrder int

const (
	Asc IndexOrder = iota
	Desc
)

// IndexColumn is one column of an index.
type IndexColumn struct {
	Name  string
	Order IndexOrder
}

// Index describes a (possibly unique, possibly partial) table index.
type Index struct {
	Name    string
	Columns []IndexColumn
	Unique  bool
	// Where is an optional predicate that turns the index into a partial index
	Where string
}

// NewIndex returns an empty, non-unique index definition.
func NewIndex(name string) Index {
	return Index{Name: name}
}

// Column appends an ascending column.
func (i Index) Column(name string) Index {
	i.Columns = append(append([]IndexColumn(nil), i.Columns...), IndexColumn{Name: name, Order: Asc})
	return i
}

// ColumnDesc appends a descending column.
func (i Index) ColumnDesc(name string) Index {
	i.Columns = append(append([]IndexColumn(nil), i.Columns...), IndexColumn{Name: name, Order: Desc})
	return i
}

// AsUnique makes the index unique.
func (i Index) AsUnique() Index {
	i.Unique = true
	return i
}

// Filter adds a WHERE clause to create a partial index.
// Example: Filter("status = 'active'")
func (i Index) Filter(condition string) Index {
	i.Where = condition
	return i
}

// ConstraintKind identifies the kind of a table constraint.
type ConstraintKind int

const (
	CheckConstraint ConstraintKind = iota
	UniqueConstraint
	ForeignKeyConstraint
)

func (k ConstraintKind) String() string {
	switch k {
	case CheckConstraint:
		return "check"
	case UniqueConstraint:
		return "unique"
	case ForeignKeyConstraint:
		return "foreign_key"
	default:
		return "unknown"
	}
}

// Constraint is a named table constraint. Which fields are meaningful depends
// on Kind: Expression for checks, Columns for unique constraints, and
// Columns/RefTable/RefColumns/OnDelete/OnUpdate for foreign keys.
type Constraint struct {
	Kind       ConstraintKind
	Name       string
	Expression string
	Columns    []string
	RefTable   string
	RefColumns []string
	OnDelete   ReferentialAction
	OnUpdate   ReferentialAction
}

// Check returns a CHECK constraint.
func Check(name, expression string) Constraint {
	return Constraint{Kind: CheckConstraint, Name: name, Expression: expression}
}

// Unique returns a UNIQUE constraint over columns.
func Unique(name string, columns ...string) Constraint {
	return Constraint{Kind: UniqueConstraint, Name: name, Columns: columns}
}

// ForeignKeyTo returns a (possibly multi-column) FOREIGN KEY constraint.
func ForeignKeyTo(name string, columns []string, refTable string, refColumns []string) Constraint {
	return Constraint{
		Kind:       ForeignKeyConstraint,
		Name:       name,
		Columns:    columns,
		RefTable:   refTable,
		RefColumns: refColumns,
	}
}

// WithOnDelete sets the ON DELETE action. It has no effect on other kinds.
func (c Constraint) WithOnDelete(action ReferentialAction) Constraint {
	if c.Kind == ForeignKeyConstraint {
		c.OnDelete = action
	}
	return c
}

// WithOnUpdate sets the ON UPDATE action. It has no effect on other kinds.
func (c Constraint) WithOnUpdate(action ReferentialAction) Constraint {
	if c.Kind == ForeignKeyConstraint {
		c.OnUpdate = action
	}
	return c
}
