package database

// Feature names an optional dialect capability.
type Feature string

const (
	// FeatureIfNotExists means CREATE ... IF NOT EXISTS is understood.
	FeatureIfNotExists Feature = "IF_NOT_EXISTS"

	// FeatureAlterColumn means a column's type, nullability and default can be
	// changed in place.
	FeatureAlterColumn Feature = "ALTER_COLUMN"

	// FeatureDropColumn means ALTER TABLE ... DROP COLUMN is supported.
	FeatureDropColumn Feature = "DROP_COLUMN"

	// FeatureTransactionalDDL means schema changes can be rolled back as part of
	// a transaction.
	FeatureTransactionalDDL Feature = "TRANSACTIONAL_DDL"
)

// Backend renders schema descriptions into dialect-specific statements.
//
// Implementations are stateless; the same Backend may be shared by any number
// of migrators.
type Backend interface {
	// Name returns the dialect name (e.g., "postgres", "sqlite", "mysql")
	Name() string

	// SupportsFeature checks if the dialect supports a specific feature
	SupportsFeature(feature Feature) bool

	// CreateTable generates SQL to create a table with the given fields
	CreateTable(name string, fields []Field) []string

	// DropTable generates SQL to drop a table
	DropTable(name string) string

	// RenameTable generates SQL to rename a table
	RenameTable(oldName, newName string) string

	// AddColumn generates SQL to add a column to a table
	AddColumn(table string, field Field) []string

	// DropColumn generates SQL to drop a column from a table
	DropColumn(table, column string) []string

	// RenameColumn generates SQL to rename a column
	RenameColumn(table, oldName, newName string) []string

	// AlterColumn generates SQL to change a column's type, nullability or default
	AlterColumn(table, column string, changes FieldChanges) []string

	// AddIndex generates SQL to create an index
	AddIndex(table string, idx Index) string

	// DropIndex generates SQL to drop an index
	DropIndex(table, name string) string

	// AddConstraint generates SQL to add a table constraint
	AddConstraint(table string, constraint Constraint) string

	// DropConstraint generates SQL to drop a named table constraint
	DropConstraint(table, name string) string

	// QuoteIdentifier quotes a table, column or index name
	QuoteIdentifier(name string) string
}
