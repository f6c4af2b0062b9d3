// Package executor connects the migrator to a live database: it picks the
// renderer for a connection string, opens the connection, and adapts it to
// the migrator's statement and transaction callbacks.
package executor

import (
	"fmt"
	"strings"

	"github.com/lockplane/lockstep/database"
	"github.com/lockplane/lockstep/database/mysql"
	"github.com/lockplane/lockstep/database/postgres"
	"github.com/lockplane/lockstep/database/sqlite"
)

// DetectDriver returns the driver type for a connection string: "postgres",
// "libsql", "mysql" or "sqlite". Anything unrecognised is treated as a
// PostgreSQL connection string.
func DetectDriver(connStr string) string {
	s := strings.ToLower(strings.TrimSpace(connStr))

	switch {
	case strings.HasPrefix(s, "postgres://"), strings.HasPrefix(s, "postgresql://"):
		return "postgres"
	case strings.HasPrefix(s, "libsql://"):
		return "libsql"
	case strings.HasPrefix(s, "mysql://"):
		return "mysql"
	case s == ":memory:", isSQLiteFilePath(s):
		return "sqlite"
	default:
		return "postgres"
	}
}

// isSQLiteFilePath reports whether s looks like a SQLite file path or URL.
func isSQLiteFilePath(s string) bool {
	s = strings.ToLower(s)

	if strings.HasPrefix(s, "sqlite://") || strings.HasPrefix(s, "file:") {
		return true
	}

	return strings.HasSuffix(s, ".db") ||
		strings.HasSuffix(s, ".sqlite") ||
		strings.HasSuffix(s, ".sqlite3")
}

// GetSQLDriverName maps a driver type to the database/sql driver name.
// Unknown types are returned unchanged.
func GetSQLDriverName(driverType string) string {
	switch driverType {
	case "postgres", "postgresql":
		return "postgres"
	case "sqlite", "sqlite3":
		return "sqlite"
	case "libsql":
		return "libsql"
	default:
		return driverType
	}
}

// NewBackend returns the SQL renderer for a driver type. libSQL speaks the
// SQLite dialect.
func NewBackend(driverType string) (database.Backend, error) {
	switch driverType {
	case "postgres", "postgresql":
		return postgres.NewDriver(), nil
	case "sqlite", "sqlite3", "libsql":
		return sqlite.NewDriver(), nil
	case "mysql":
		return mysql.NewDriver(), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driverType)
	}
}

// sqliteDSN strips the sqlite:// scheme, which the driver does not accept.
func sqliteDSN(connStr string) string {
	if len(connStr) >= len("sqlite://") && strings.EqualFold(connStr[:len("sqlite://")], "sqlite://") {
		return connStr[len("sqlite://"):]
	}
	return connStr
}
