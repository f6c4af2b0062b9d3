package database

import (
	"fmt"
	"strings"
)

// Dialect supplies the dialect-specific pieces used by the shared SQL
// builders in this file.
type Dialect interface {
	QuoteIdentifier(name string) string

	// TypeName returns the column type for a field. primaryKey is set when the
	// field is the table's primary key.
	TypeName(t FieldType, primaryKey bool) string

	// AutoIncrement returns the column attribute that makes a serial primary
	// key auto-incrementing, or "" when the type name already implies it.
	AutoIncrement() string
}

// ChangeValidator is implemented by backends that can only express a subset of
// column alterations.
type ChangeValidator interface {
	ValidateChanges(changes FieldChanges) error
}

// QuoteWith wraps name in quote characters, doubling any embedded quote.
func QuoteWith(name string, quote string) string {
	return quote + strings.ReplaceAll(name, quote, quote+quote) + quote
}

// ColumnDefinition formats a column definition for CREATE TABLE and ADD COLUMN.
// Foreign keys are not included; see ReferencesClause.
func ColumnDefinition(d Dialect, f Field) string {
	parts := []string{d.QuoteIdentifier(f.Name), d.TypeName(f.Type, f.PrimaryKey)}

	if !f.Nullable || f.PrimaryKey {
		parts = append(parts, "NOT NULL")
	}

	if f.Default != nil {
		parts = append(parts, "DEFAULT "+*f.Default)
	}

	if f.PrimaryKey {
		parts = append(parts, "PRIMARY KEY")
		if f.Type.IsSerial() {
			if auto := d.AutoIncrement(); auto != "" {
				parts = append(parts, auto)
			}
		}
	}

	if f.Unique && !f.PrimaryKey {
		parts = append(parts, "UNIQUE")
	}

	return strings.Join(parts, " ")
}

// ReferencesClause formats an inline column REFERENCES clause.
func ReferencesClause(d Dialect, fk ForeignKey) string {
	return fmt.Sprintf("REFERENCES %s (%s) ON DELETE %s ON UPDATE %s",
		d.QuoteIdentifier(fk.Table),
		d.QuoteIdentifier(fk.Column),
		fk.OnDelete.SQL(),
		fk.OnUpdate.SQL())
}

// CreateTableSQL formats a CREATE TABLE statement. Foreign keys declared on
// fields are emitted as table-level constraints after the columns.
func CreateTableSQL(d Dialect, name string, fields []Field) string {
	var sb strings.Builder

	sb.WriteString("CREATE TABLE ")
	sb.WriteString(d.QuoteIdentifier(name))
	sb.WriteString(" (")

	defs := make([]string, 0, len(fields))
	for _, f := range fields {
		defs = append(defs, ColumnDefinition(d, f))
	}
	for _, f := range fields {
		if f.References == nil {
			continue
		}
		fk := f.References
		defs = append(defs, fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s) ON DELETE %s ON UPDATE %s",
			d.QuoteIdentifier(f.Name),
			d.QuoteIdentifier(fk.Table),
			d.QuoteIdentifier(fk.Column),
			fk.OnDelete.SQL(),
			fk.OnUpdate.SQL()))
	}

	sb.WriteString(strings.Join(defs, ", "))
	sb.WriteString(")")
	return sb.String()
}

// AddColumnSQL formats ALTER TABLE ... ADD COLUMN, including an inline
// REFERENCES clause when the field declares a foreign key.
func AddColumnSQL(d Dialect, table string, f Field) string {
	def := ColumnDefinition(d, f)
	if f.References != nil {
		def += " " + ReferencesClause(d, *f.References)
	}
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", d.QuoteIdentifier(table), def)
}

// CreateIndexSQL formats CREATE [UNIQUE] INDEX. The WHERE predicate is
// included when withWhere is set and the index is partial.
func CreateIndexSQL(d Dialect, table string, idx Index, withWhere bool) string {
	var sb strings.Builder

	sb.WriteString("CREATE ")
	if idx.Unique {
		sb.WriteString("UNIQUE ")
	}
	sb.WriteString("INDEX ")
	sb.WriteString(d.QuoteIdentifier(idx.Name))
	sb.WriteString(" ON ")
	sb.WriteString(d.QuoteIdentifier(table))
	sb.WriteString(" (")

	cols := make([]string, 0, len(idx.Columns))
	for _, c := range idx.Columns {
		col := d.QuoteIdentifier(c.Name)
		if c.Order == Desc {
			col += " DESC"
		}
		cols = append(cols, col)
	}
	sb.WriteString(strings.Join(cols, ", "))
	sb.WriteString(")")

	if withWhere && idx.Where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(idx.Where)
	}

	return sb.String()
}

// AddConstraintSQL renders a constraint using the forms every supported
// dialect accepts: UNIQUE becomes a unique index, CHECK and FOREIGN KEY use
// the textual ALTER TABLE ... ADD CONSTRAINT form.
func AddConstraintSQL(d Dialect, table string, c Constraint) string {
	switch c.Kind {
	case UniqueConstraint:
		idx := NewIndex(c.Name).AsUnique()
		for _, col := range c.Columns {
			idx = idx.Column(col)
		}
		return CreateIndexSQL(d, table, idx, false)

	case ForeignKeyConstraint:
		cols := make([]string, 0, len(c.Columns))
		for _, col := range c.Columns {
			cols = append(cols, d.QuoteIdentifier(col))
		}
		refCols := make([]string, 0, len(c.RefColumns))
		for _, col := range c.RefColumns {
			refCols = append(refCols, d.QuoteIdentifier(col))
		}
		return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s) ON DELETE %s ON UPDATE %s",
			d.QuoteIdentifier(table),
			d.QuoteIdentifier(c.Name),
			strings.Join(cols, ", "),
			d.QuoteIdentifier(c.RefTable),
			strings.Join(refCols, ", "),
			c.OnDelete.SQL(),
			c.OnUpdate.SQL())

	default:
		return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s CHECK (%s)",
			d.QuoteIdentifier(table),
			d.QuoteIdentifier(c.Name),
			c.Expression)
	}
}
