package sqlcheck

import (
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// LockMode is a PostgreSQL table lock mode, ordered from weakest to
// strongest. See https://www.postgresql.org/docs/current/explicit-locking.html
type LockMode int

const (
	LockAccessShare LockMode = iota
	LockRowShare
	LockRowExclusive
	// LockShareUpdateExclusive allows concurrent reads and writes.
	LockShareUpdateExclusive
	// LockShare blocks writes but allows reads.
	LockShare
	LockShareRowExclusive
	LockExclusive
	// LockAccessExclusive conflicts with everything, including SELECT.
	LockAccessExclusive
)

func (l LockMode) String() string {
	switch l {
	case LockAccessShare:
		return "ACCESS SHARE"
	case LockRowShare:
		return "ROW SHARE"
	case LockRowExclusive:
		return "ROW EXCLUSIVE"
	case LockShareUpdateExclusive:
		return "SHARE UPDATE EXCLUSIVE"
	case LockShare:
		return "SHARE"
	case LockShareRowExclusive:
		return "SHARE ROW EXCLUSIVE"
	case LockExclusive:
		return "EXCLUSIVE"
	case LockAccessExclusive:
		return "ACCESS EXCLUSIVE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(l))
	}
}

// MarshalText encodes the mode by name.
func (l LockMode) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// BlocksReads reports whether SELECT waits for this lock.
func (l LockMode) BlocksReads() bool {
	return l == LockAccessExclusive
}

// BlocksWrites reports whether INSERT, UPDATE and DELETE wait for this lock.
func (l LockMode) BlocksWrites() bool {
	return l >= LockShare
}

// LockImpact is the lock one statement takes.
type LockImpact struct {
	Migration   string   `json:"migration"`
	Statement   int      `json:"statement"`
	Table       string   `json:"table,omitempty"`
	Mode        LockMode `json:"mode"`
	Explanation string   `json:"explanation"`
}

// BlocksTraffic reports whether the lock blocks reads or writes.
func (li LockImpact) BlocksTraffic() bool {
	return li.Mode.BlocksWrites()
}

// AnalyzeLocks returns the strongest table lock taken by each statement of
// a migration. Statements that do not parse are skipped; CheckMigration
// reports them.
func AnalyzeLocks(name string, statements []string) []LockImpact {
	var impacts []LockImpact

	for i, stmt := range statements {
		tree, err := pg_query.Parse(stmt)
		if err != nil {
			continue
		}

		for _, raw := range tree.Stmts {
			if raw.Stmt == nil {
				continue
			}
			impact := lockFor(raw.Stmt)
			impact.Migration = name
			impact.Statement = i
			impacts = append(impacts, impact)
		}
	}

	return impacts
}

func lockFor(stmt *pg_query.Node) LockImpact {
	switch node := stmt.Node.(type) {
	case *pg_query.Node_SelectStmt:
		return LockImpact{Mode: LockAccessShare, Explanation: "read-only statement"}

	case *pg_query.Node_InsertStmt:
		return LockImpact{Table: rangeVarName(node.InsertStmt.Relation), Mode: LockRowExclusive, Explanation: "normal DML"}
	case *pg_query.Node_UpdateStmt:
		return LockImpact{Table: rangeVarName(node.UpdateStmt.Relation), Mode: LockRowExclusive, Explanation: "normal DML"}
	case *pg_query.Node_DeleteStmt:
		return LockImpact{Table: rangeVarName(node.DeleteStmt.Relation), Mode: LockRowExclusive, Explanation: "normal DML"}

	case *pg_query.Node_CreateStmt:
		return LockImpact{Table: rangeVarName(node.CreateStmt.Relation), Mode: LockAccessShare, Explanation: "new table, no existing rows are locked"}

	case *pg_query.Node_IndexStmt:
		table := rangeVarName(node.IndexStmt.Relation)
		if node.IndexStmt.Concurrent {
			return LockImpact{Table: table, Mode: LockShareUpdateExclusive, Explanation: "CREATE INDEX CONCURRENTLY allows concurrent reads and writes"}
		}
		return LockImpact{Table: table, Mode: LockShare, Explanation: "CREATE INDEX blocks writes for the whole index build"}

	case *pg_query.Node_DropStmt:
		if node.DropStmt.Concurrent {
			return LockImpact{Mode: LockShareUpdateExclusive, Explanation: "DROP INDEX CONCURRENTLY allows concurrent reads and writes"}
		}
		if node.DropStmt.RemoveType == pg_query.ObjectType_OBJECT_TABLE {
			return LockImpact{Table: objectName(node.DropStmt.Objects), Mode: LockAccessExclusive, Explanation: "DROP TABLE needs exclusive access"}
		}
		return LockImpact{Mode: LockAccessExclusive, Explanation: "DROP needs exclusive access to the parent table"}

	case *pg_query.Node_TruncateStmt:
		return LockImpact{Mode: LockAccessExclusive, Explanation: "TRUNCATE needs exclusive access"}

	case *pg_query.Node_RenameStmt:
		return LockImpact{Table: rangeVarName(node.RenameStmt.Relation), Mode: LockAccessExclusive, Explanation: "RENAME needs exclusive access"}

	case *pg_query.Node_AlterTableStmt:
		return alterTableLock(node.AlterTableStmt)

	default:
		return LockImpact{Mode: LockAccessExclusive, Explanation: "unrecognised statement, assuming exclusive access"}
	}
}

// alterTableLock returns the strongest lock over all subcommands.
func alterTableLock(stmt *pg_query.AlterTableStmt) LockImpact {
	impact := LockImpact{Table: rangeVarName(stmt.Relation), Mode: LockAccessShare}

	raise := func(mode LockMode, explanation string) {
		if mode > impact.Mode || impact.Explanation == "" {
			impact.Mode = mode
			impact.Explanation = explanation
		}
	}

	for _, cmd := range stmt.Cmds {
		alter, ok := cmd.Node.(*pg_query.Node_AlterTableCmd)
		if !ok {
			continue
		}

		switch c := alter.AlterTableCmd; c.Subtype {
		case pg_query.AlterTableType_AT_ValidateConstraint:
			raise(LockShareUpdateExclusive, "VALIDATE CONSTRAINT allows concurrent reads and writes")
		case pg_query.AlterTableType_AT_AddColumn:
			if columnHasDefault(c.Def) {
				raise(LockAccessExclusive, "ADD COLUMN with DEFAULT needs exclusive access and may rewrite the table")
			} else {
				raise(LockAccessExclusive, "ADD COLUMN needs exclusive access briefly")
			}
		case pg_query.AlterTableType_AT_DropColumn:
			raise(LockAccessExclusive, "DROP COLUMN needs exclusive access")
		case pg_query.AlterTableType_AT_AlterColumnType:
			raise(LockAccessExclusive, "changing a column type may rewrite the table")
		case pg_query.AlterTableType_AT_AddConstraint:
			if constraintSkipsValidation(c.Def) {
				raise(LockAccessExclusive, "ADD CONSTRAINT NOT VALID needs exclusive access briefly")
			} else {
				raise(LockAccessExclusive, "ADD CONSTRAINT scans all rows while holding exclusive access")
			}
		default:
			raise(LockAccessExclusive, "ALTER TABLE needs exclusive access")
		}
	}

	return impact
}

func columnHasDefault(def *pg_query.Node) bool {
	if def == nil {
		return false
	}
	col, ok := def.Node.(*pg_query.Node_ColumnDef)
	if !ok {
		return false
	}
	for _, c := range col.ColumnDef.Constraints {
		if con, ok := c.Node.(*pg_query.Node_Constraint); ok && con.Constraint.Contype == pg_query.ConstrType_CONSTR_DEFAULT {
			return true
		}
	}
	return false
}

func constraintSkipsValidation(def *pg_query.Node) bool {
	if def == nil {
		return false
	}
	con, ok := def.Node.(*pg_query.Node_Constraint)
	return ok && con.Constraint.SkipValidation
}
