// Package sqlcheck inspects rendered PostgreSQL migration statements with the
// PostgreSQL parser before they are run.
package sqlcheck

import (
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// Severity of an Issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a problem found in one statement.
type Issue struct {
	Migration string   `json:"migration"`
	Statement int      `json:"statement"` // zero-based index within the migration
	SQL       string   `json:"sql"`
	Severity  Severity `json:"severity"`
	Code      string   `json:"code"`
	Message   string   `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s[%d]: %s: %s", i.Migration, i.Statement, strings.ToUpper(string(i.Severity)), i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

// CheckMigration parses every statement of one migration. Syntax errors,
// transaction control and concurrent index builds inside an atomic migration
// are errors; statements that destroy data are warnings.
func CheckMigration(name string, atomic bool, statements []string) []Issue {
	var issues []Issue

	for i, stmt := range statements {
		add := func(severity Severity, code, message string) {
			issues = append(issues, Issue{
				Migration: name,
				Statement: i,
				SQL:       stmt,
				Severity:  severity,
				Code:      code,
				Message:   message,
			})
		}

		tree, err := pg_query.Parse(stmt)
		if err != nil {
			add(SeverityError, "syntax_error", fmt.Sprintf("failed to parse statement: %v", err))
			continue
		}

		for _, raw := range tree.Stmts {
			if raw.Stmt == nil {
				continue
			}
			inspect(raw.Stmt, atomic, add)
		}
	}

	return issues
}

func inspect(stmt *pg_query.Node, atomic bool, add func(Severity, string, string)) {
	switch node := stmt.Node.(type) {
	case *pg_query.Node_TransactionStmt:
		add(SeverityError, "transaction_control",
			"transaction control statements are not allowed; transactions are managed per migration")

	case *pg_query.Node_IndexStmt:
		if atomic && node.IndexStmt.Concurrent {
			add(SeverityError, "concurrent_in_transaction",
				fmt.Sprintf("CREATE INDEX CONCURRENTLY %s cannot run inside a transaction; mark the migration atomic = false", node.IndexStmt.Idxname))
		}

	case *pg_query.Node_DropStmt:
		drop := node.DropStmt
		if atomic && drop.Concurrent {
			add(SeverityError, "concurrent_in_transaction",
				"DROP INDEX CONCURRENTLY cannot run inside a transaction; mark the migration atomic = false")
		}
		if drop.RemoveType == pg_query.ObjectType_OBJECT_TABLE {
			msg := fmt.Sprintf("DROP TABLE %s permanently deletes all rows", objectName(drop.Objects))
			if drop.Behavior == pg_query.DropBehavior_DROP_CASCADE {
				msg += " and drops dependent objects"
			}
			add(SeverityWarning, "dangerous_drop_table", msg)
		}

	case *pg_query.Node_TruncateStmt:
		names := make([]string, 0, len(node.TruncateStmt.Relations))
		for _, rel := range node.TruncateStmt.Relations {
			if rv, ok := rel.Node.(*pg_query.Node_RangeVar); ok {
				names = append(names, rangeVarName(rv.RangeVar))
			}
		}
		add(SeverityWarning, "dangerous_truncate",
			fmt.Sprintf("TRUNCATE %s removes all rows", strings.Join(names, ", ")))

	case *pg_query.Node_DeleteStmt:
		if node.DeleteStmt.WhereClause == nil {
			add(SeverityWarning, "dangerous_delete_all",
				fmt.Sprintf("DELETE FROM %s without WHERE removes all rows", rangeVarName(node.DeleteStmt.Relation)))
		}

	case *pg_query.Node_AlterTableStmt:
		table := rangeVarName(node.AlterTableStmt.Relation)
		for _, cmd := range node.AlterTableStmt.Cmds {
			alter, ok := cmd.Node.(*pg_query.Node_AlterTableCmd)
			if !ok || alter.AlterTableCmd.Subtype != pg_query.AlterTableType_AT_DropColumn {
				continue
			}
			add(SeverityWarning, "dangerous_drop_column",
				fmt.Sprintf("DROP COLUMN %s.%s permanently deletes its data", table, alter.AlterTableCmd.Name))
		}
	}
}

// objectName returns the first, possibly qualified, name of a DROP target.
func objectName(objects []*pg_query.Node) string {
	if len(objects) == 0 {
		return "unknown"
	}

	list, ok := objects[0].Node.(*pg_query.Node_List)
	if !ok {
		return "unknown"
	}

	names := make([]string, 0, len(list.List.Items))
	for _, item := range list.List.Items {
		if s, ok := item.Node.(*pg_query.Node_String_); ok {
			names = append(names, s.String_.Sval)
		}
	}
	return strings.Join(names, ".")
}

func rangeVarName(rv *pg_query.RangeVar) string {
	if rv == nil {
		return "unknown"
	}
	if rv.Schemaname != "" {
		return rv.Schemaname + "." + rv.Relname
	}
	return rv.Relname
}
