package sqlite

import (
	"fmt"

	"github.com/lockplane/lockstep/database"
)

// Generator renders schema changes as SQLite statements. It is also used for
// libSQL, which speaks the same dialect.
type Generator struct{}

// NewGenerator creates a new SQLite SQL generator
func NewGenerator() *Generator {
	return &Generator{}
}

// QuoteIdentifier quotes name with double quotes.
func (g *Generator) QuoteIdentifier(name string) string {
	return database.QuoteWith(name, `"`)
}

// TypeName maps a portable type to a SQLite column type. SQLite only keeps the
// type affinity, so several kinds collapse onto the same name.
func (g *Generator) TypeName(t database.FieldType, primaryKey bool) string {
	switch t.Kind {
	case database.KindSerial, database.KindBigSerial, database.KindInteger,
		database.KindBigInt, database.KindSmallInt:
		return "integer"
	case database.KindVarChar:
		return fmt.Sprintf("varchar(%d)", t.Length)
	case database.KindBoolean:
		return "boolean"
	case database.KindTimestamp, database.KindTimestampTZ:
		return "timestamp"
	case database.KindDate:
		return "date"
	case database.KindTime:
		return "time"
	case database.KindBinary:
		return "blob"
	case database.KindReal:
		return "real"
	case database.KindDoublePrecision:
		return "double"
	case database.KindDecimal:
		return fmt.Sprintf("decimal(%d, %d)", t.Precision, t.Scale)
	default:
		// text, uuid, json and jsonb are all stored as text
		return "text"
	}
}

// AutoIncrement returns the SQLite AUTOINCREMENT keyword.
func (g *Generator) AutoIncrement() string {
	return "AUTOINCREMENT"
}

// CreateTable generates SQLite SQL to create a table
func (g *Generator) CreateTable(name string, fields []database.Field) []string {
	return []string{database.CreateTableSQL(g, name, fields)}
}

// DropTable generates SQLite SQL to drop a table
func (g *Generator) DropTable(name string) string {
	// SQLite doesn't support CASCADE, but will fail if there are dependencies
	return fmt.Sprintf("DROP TABLE %s", g.QuoteIdentifier(name))
}

// RenameTable generates SQLite SQL to rename a table
func (g *Generator) RenameTable(oldName, newName string) string {
	return fmt.Sprintf("ALTER TABLE %s RENAME TO %s", g.QuoteIdentifier(oldName), g.QuoteIdentifier(newName))
}

// AddColumn generates SQLite SQL to add a column
func (g *Generator) AddColumn(table string, field database.Field) []string {
	return []string{database.AddColumnSQL(g, table, field)}
}

// DropColumn generates SQLite SQL to drop a column (SQLite 3.35.0+)
func (g *Generator) DropColumn(table, column string) []string {
	return []string{fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", g.QuoteIdentifier(table), g.QuoteIdentifier(column))}
}

// RenameColumn generates SQLite SQL to rename a column (SQLite 3.25.0+)
func (g *Generator) RenameColumn(table, oldName, newName string) []string {
	return []string{fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s",
		g.QuoteIdentifier(table), g.QuoteIdentifier(oldName), g.QuoteIdentifier(newName))}
}

// AlterColumn returns no statements. SQLite cannot alter a column in place;
// operations check FeatureAlterColumn before rendering.
func (g *Generator) AlterColumn(table, column string, changes database.FieldChanges) []string {
	return nil
}

// AddIndex generates SQLite SQL to add an index
func (g *Generator) AddIndex(table string, idx database.Index) string {
	return database.CreateIndexSQL(g, table, idx, true)
}

// DropIndex generates SQLite SQL to drop an index
func (g *Generator) DropIndex(table, name string) string {
	return fmt.Sprintf("DROP INDEX %s", g.QuoteIdentifier(name))
}

// AddConstraint generates SQLite SQL to add a table constraint
func (g *Generator) AddConstraint(table string, constraint database.Constraint) string {
	return database.AddConstraintSQL(g, table, constraint)
}

// DropConstraint drops the index backing a constraint. SQLite has no ALTER
// TABLE ... DROP CONSTRAINT, and unique constraints are created as indexes.
func (g *Generator) DropConstraint(table, name string) string {
	return fmt.Sprintf("DROP INDEX IF EXISTS %s", g.QuoteIdentifier(name))
}

// ParameterPlaceholder returns the SQLite parameter placeholder (?)
func (g *Generator) ParameterPlaceholder(position int) string {
	return "?"
}
