package mysql

import (
	"fmt"
	"strings"

	"github.com/lockplane/lockstep/database"
)

// Generator renders schema changes as MySQL statements.
type Generator struct{}

// NewGenerator creates a new MySQL SQL generator
func NewGenerator() *Generator {
	return &Generator{}
}

// QuoteIdentifier quotes name with backticks.
func (g *Generator) QuoteIdentifier(name string) string {
	return database.QuoteWith(name, "`")
}

// TypeName maps a portable type to its MySQL spelling.
func (g *Generator) TypeName(t database.FieldType, primaryKey bool) string {
	switch t.Kind {
	case database.KindSerial, database.KindInteger:
		return "int"
	case database.KindBigSerial, database.KindBigInt:
		return "bigint"
	case database.KindSmallInt:
		return "smallint"
	case database.KindVarChar:
		return fmt.Sprintf("varchar(%d)", t.Length)
	case database.KindBoolean:
		return "bool"
	case database.KindTimestamp, database.KindTimestampTZ:
		return "timestamp"
	case database.KindDate:
		return "date"
	case database.KindTime:
		return "time"
	case database.KindUUID:
		return "binary(16)"
	case database.KindJSON, database.KindJSONB:
		return "json"
	case database.KindBinary:
		return "blob"
	case database.KindReal:
		return "float"
	case database.KindDoublePrecision:
		return "double"
	case database.KindDecimal:
		return fmt.Sprintf("decimal(%d, %d)", t.Precision, t.Scale)
	default:
		return "text"
	}
}

// AutoIncrement returns the MySQL AUTO_INCREMENT attribute.
func (g *Generator) AutoIncrement() string {
	return "AUTO_INCREMENT"
}

// CreateTable generates MySQL SQL to create a table
func (g *Generator) CreateTable(name string, fields []database.Field) []string {
	return []string{database.CreateTableSQL(g, name, fields)}
}

// DropTable generates MySQL SQL to drop a table
func (g *Generator) DropTable(name string) string {
	return fmt.Sprintf("DROP TABLE %s", g.QuoteIdentifier(name))
}

// RenameTable generates MySQL SQL to rename a table
func (g *Generator) RenameTable(oldName, newName string) string {
	return fmt.Sprintf("RENAME TABLE %s TO %s", g.QuoteIdentifier(oldName), g.QuoteIdentifier(newName))
}

// AddColumn generates MySQL SQL to add a column
func (g *Generator) AddColumn(table string, field database.Field) []string {
	return []string{database.AddColumnSQL(g, table, field)}
}

// DropColumn generates MySQL SQL to drop a column
func (g *Generator) DropColumn(table, column string) []string {
	return []string{fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", g.QuoteIdentifier(table), g.QuoteIdentifier(column))}
}

// RenameColumn generates MySQL SQL to rename a column (MySQL 8.0+)
func (g *Generator) RenameColumn(table, oldName, newName string) []string {
	return []string{fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s",
		g.QuoteIdentifier(table), g.QuoteIdentifier(oldName), g.QuoteIdentifier(newName))}
}

// ValidateChanges rejects alterations MySQL cannot express without the full
// column definition. MODIFY COLUMN restates the type, so nullability can only
// change together with it.
func (g *Generator) ValidateChanges(changes database.FieldChanges) error {
	if changes.Nullable != nil && changes.Type == nil {
		return fmt.Errorf("mysql cannot change nullability without restating the column type")
	}
	return nil
}

// AlterColumn generates MySQL SQL to change a column. A type change is
// rendered as MODIFY COLUMN carrying nullability and default; a default-only
// change uses ALTER COLUMN ... SET/DROP DEFAULT.
func (g *Generator) AlterColumn(table, column string, changes database.FieldChanges) []string {
	quotedTable := g.QuoteIdentifier(table)
	quotedColumn := g.QuoteIdentifier(column)

	if changes.Type != nil {
		parts := []string{quotedColumn, g.TypeName(*changes.Type, false)}
		if changes.Nullable != nil {
			if *changes.Nullable {
				parts = append(parts, "NULL")
			} else {
				parts = append(parts, "NOT NULL")
			}
		}
		if changes.DefaultSet && changes.Default != nil {
			parts = append(parts, "DEFAULT "+*changes.Default)
		}
		return []string{fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s", quotedTable, strings.Join(parts, " "))}
	}

	if changes.DefaultSet {
		if changes.Default == nil {
			return []string{fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP DEFAULT", quotedTable, quotedColumn)}
		}
		return []string{fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET DEFAULT %s", quotedTable, quotedColumn, *changes.Default)}
	}

	return nil
}

// AddIndex generates MySQL SQL to add an index. MySQL has no partial indexes,
// so a WHERE predicate is not rendered.
func (g *Generator) AddIndex(table string, idx database.Index) string {
	return database.CreateIndexSQL(g, table, idx, false)
}

// DropIndex generates MySQL SQL to drop an index
func (g *Generator) DropIndex(table, name string) string {
	return fmt.Sprintf("DROP INDEX %s ON %s", g.QuoteIdentifier(name), g.QuoteIdentifier(table))
}

// AddConstraint generates MySQL SQL to add a table constraint
func (g *Generator) AddConstraint(table string, constraint database.Constraint) string {
	return database.AddConstraintSQL(g, table, constraint)
}

// DropConstraint drops the index backing a constraint.
func (g *Generator) DropConstraint(table, name string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP INDEX %s", g.QuoteIdentifier(table), g.QuoteIdentifier(name))
}

// ParameterPlaceholder returns the MySQL parameter placeholder (?)
func (g *Generator) ParameterPlaceholder(position int) string {
	return "?"
}
