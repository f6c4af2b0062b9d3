package postgres

import (
	"fmt"

	"github.com/lib/pq"

	"github.com/lockplane/lockstep/database"
)

// Generator renders schema changes as PostgreSQL statements.
type Generator struct{}

// NewGenerator creates a new PostgreSQL SQL generator
func NewGenerator() *Generator {
	return &Generator{}
}

// QuoteIdentifier quotes name with double quotes.
func (g *Generator) QuoteIdentifier(name string) string {
	return pq.QuoteIdentifier(name)
}

// TypeName maps a portable type to its PostgreSQL spelling.
func (g *Generator) TypeName(t database.FieldType, primaryKey bool) string {
	switch t.Kind {
	case database.KindSerial:
		return "serial"
	case database.KindBigSerial:
		return "bigserial"
	case database.KindInteger:
		return "integer"
	case database.KindBigInt:
		return "bigint"
	case database.KindSmallInt:
		return "smallint"
	case database.KindText:
		return "text"
	case database.KindVarChar:
		return fmt.Sprintf("varchar(%d)", t.Length)
	case database.KindBoolean:
		return "boolean"
	case database.KindTimestamp:
		return "timestamp without time zone"
	case database.KindTimestampTZ:
		return "timestamp with time zone"
	case database.KindDate:
		return "date"
	case database.KindTime:
		return "time"
	case database.KindUUID:
		return "uuid"
	case database.KindJSON:
		return "json"
	case database.KindJSONB:
		return "jsonb"
	case database.KindBinary:
		return "bytea"
	case database.KindReal:
		return "real"
	case database.KindDoublePrecision:
		return "double precision"
	case database.KindDecimal:
		return fmt.Sprintf("decimal(%d, %d)", t.Precision, t.Scale)
	default:
		return "text"
	}
}

// AutoIncrement returns "": serial types carry their own sequence.
func (g *Generator) AutoIncrement() string {
	return ""
}

// CreateTable generates PostgreSQL SQL to create a table
func (g *Generator) CreateTable(name string, fields []database.Field) []string {
	return []string{database.CreateTableSQL(g, name, fields)}
}

// DropTable generates PostgreSQL SQL to drop a table
func (g *Generator) DropTable(name string) string {
	return fmt.Sprintf("DROP TABLE %s", g.QuoteIdentifier(name))
}

// RenameTable generates PostgreSQL SQL to rename a table
func (g *Generator) RenameTable(oldName, newName string) string {
	return fmt.Sprintf("ALTER TABLE %s RENAME TO %s", g.QuoteIdentifier(oldName), g.QuoteIdentifier(newName))
}

// AddColumn generates PostgreSQL SQL to add a column
func (g *Generator) AddColumn(table string, field database.Field) []string {
	return []string{database.AddColumnSQL(g, table, field)}
}

// DropColumn generates PostgreSQL SQL to drop a column
func (g *Generator) DropColumn(table, column string) []string {
	return []string{fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", g.QuoteIdentifier(table), g.QuoteIdentifier(column))}
}

// RenameColumn generates PostgreSQL SQL to rename a column
func (g *Generator) RenameColumn(table, oldName, newName string) []string {
	return []string{fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s",
		g.QuoteIdentifier(table), g.QuoteIdentifier(oldName), g.QuoteIdentifier(newName))}
}

// AlterColumn generates one statement per changed attribute, in the order
// type, nullability, default.
func (g *Generator) AlterColumn(table, column string, changes database.FieldChanges) []string {
	prefix := fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s", g.QuoteIdentifier(table), g.QuoteIdentifier(column))
	var stmts []string

	if changes.Type != nil {
		stmts = append(stmts, fmt.Sprintf("%s TYPE %s", prefix, g.TypeName(*changes.Type, false)))
	}

	if changes.Nullable != nil {
		if *changes.Nullable {
			stmts = append(stmts, prefix+" DROP NOT NULL")
		} else {
			stmts = append(stmts, prefix+" SET NOT NULL")
		}
	}

	if changes.DefaultSet {
		if changes.Default == nil {
			stmts = append(stmts, prefix+" DROP DEFAULT")
		} else {
			stmts = append(stmts, fmt.Sprintf("%s SET DEFAULT %s", prefix, *changes.Default))
		}
	}

	return stmts
}

// AddIndex generates PostgreSQL SQL to add an index
func (g *Generator) AddIndex(table string, idx database.Index) string {
	return database.CreateIndexSQL(g, table, idx, true)
}

// DropIndex generates PostgreSQL SQL to drop an index
func (g *Generator) DropIndex(table, name string) string {
	return fmt.Sprintf("DROP INDEX %s", g.QuoteIdentifier(name))
}

// AddConstraint generates PostgreSQL SQL to add a table constraint
func (g *Generator) AddConstraint(table string, constraint database.Constraint) string {
	return database.AddConstraintSQL(g, table, constraint)
}

// DropConstraint generates PostgreSQL SQL to drop a table constraint
func (g *Generator) DropConstraint(table, name string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", g.QuoteIdentifier(table), g.QuoteIdentifier(name))
}

// ParameterPlaceholder returns the PostgreSQL parameter placeholder ($1, $2, etc.)
func (g *Generator) ParameterPlaceholder(position int) string {
	return fmt.Sprintf("$%d", position)
}
