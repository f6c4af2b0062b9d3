package database

import (
	"context"
	"database/sql"
	"fmt"
)

// DefaultStateTable is the table used to record applied migrations.
const DefaultStateTable = "schema_migrations"

// PlaceholderDialect is a Dialect that also knows its bind parameter syntax.
type PlaceholderDialect interface {
	Dialect
	ParameterPlaceholder(position int) string
}

// StateTable records applied migrations in a database table:
//
//	migration_name TEXT PRIMARY KEY
//	applied        BOOLEAN NOT NULL DEFAULT TRUE
//	applied_seq    BIGINT NOT NULL
//	applied_at     TIMESTAMP DEFAULT CURRENT_TIMESTAMP
//
// applied_seq preserves application order, which timestamps cannot guarantee
// within a single second.
type StateTable struct {
	db      *sql.DB
	dialect PlaceholderDialect
	table   string
}

// NewStateTable creates the state table if needed and returns a store bound
// to it. An empty table name selects DefaultStateTable.
func NewStateTable(ctx context.Context, db *sql.DB, dialect PlaceholderDialect, table string) (*StateTable, error) {
	if table == "" {
		table = DefaultStateTable
	}

	s := &StateTable{db: db, dialect: dialect, table: table}

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
  migration_name TEXT PRIMARY KEY,
  applied BOOLEAN NOT NULL DEFAULT TRUE,
  applied_seq BIGINT NOT NULL,
  applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`, s.quotedTable())

	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return nil, fmt.Errorf("failed to create state table %s: %w", table, err)
	}

	return s, nil
}

// Table returns the unquoted state table name.
func (s *StateTable) Table() string {
	return s.table
}

func (s *StateTable) quotedTable() string {
	return s.dialect.QuoteIdentifier(s.table)
}

// AppliedMigrations returns applied migration names in application order.
func (s *StateTable) AppliedMigrations(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf("SELECT migration_name FROM %s WHERE applied ORDER BY applied_seq, migration_name", s.quotedTable())

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan migration name: %w", err)
		}
		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read applied migrations: %w", err)
	}

	return names, nil
}

// MarkApplied records name as applied. Marking an applied migration again
// keeps its original position; re-applying an unapplied one moves it to the
// end.
func (s *StateTable) MarkApplied(ctx context.Context, name string) error {
	t := s.quotedTable()
	stmt := fmt.Sprintf(`INSERT INTO %[1]s (migration_name, applied, applied_seq)
VALUES (%[2]s, TRUE, (SELECT COALESCE(MAX(applied_seq), 0) + 1 FROM %[1]s))
ON CONFLICT (migration_name) DO UPDATE SET
  applied_seq = CASE WHEN %[1]s.applied THEN %[1]s.applied_seq ELSE excluded.applied_seq END,
  applied = TRUE`, t, s.dialect.ParameterPlaceholder(1))

	if _, err := s.db.ExecContext(ctx, stmt, name); err != nil {
		return fmt.Errorf("failed to mark %s applied: %w", name, err)
	}
	return nil
}

// MarkUnapplied records name as not applied. Unknown names are ignored.
func (s *StateTable) MarkUnapplied(ctx context.Context, name string) error {
	stmt := fmt.Sprintf("UPDATE %s SET applied = FALSE WHERE migration_name = %s",
		s.quotedTable(), s.dialect.ParameterPlaceholder(1))

	if _, err := s.db.ExecContext(ctx, stmt, name); err != nil {
		return fmt.Errorf("failed to mark %s unapplied: %w", name, err)
	}
	return nil
}
