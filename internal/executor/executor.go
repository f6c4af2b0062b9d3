package executor

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lockplane/lockstep/database/postgres"
	"github.com/lockplane/lockstep/database/sqlite"
	"github.com/lockplane/lockstep/internal/state"
	"github.com/lockplane/lockstep/migration"
)

// Connection is an open database together with its driver type.
type Connection struct {
	DB         *sql.DB
	DriverType string
}

// Open detects the driver for connStr, opens the database and pings it.
// SQLite connections are limited to one open connection so that in-memory
// databases and transactions see a single session.
func Open(ctx context.Context, connStr string) (*Connection, error) {
	driverType := DetectDriver(connStr)

	dsn := connStr
	if driverType == "sqlite" {
		dsn = sqliteDSN(connStr)
	}

	db, err := sql.Open(GetSQLDriverName(driverType), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driverType, err)
	}

	if driverType == "sqlite" {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", driverType, err)
	}

	return &Connection{DB: db, DriverType: driverType}, nil
}

// Close closes the underlying database.
func (c *Connection) Close() error {
	return c.DB.Close()
}

// NewStateStore returns the state store for a connection. A non-empty
// stateFile selects the JSON file store; otherwise applied migrations are kept
// in table inside the database itself.
func NewStateStore(ctx context.Context, conn *Connection, table, stateFile string) (migration.StateStore, error) {
	if stateFile != "" {
		return state.NewFileStore(stateFile), nil
	}

	switch conn.DriverType {
	case "postgres", "postgresql":
		return postgres.NewStateStore(ctx, conn.DB, table)
	case "sqlite", "sqlite3", "libsql":
		return sqlite.NewStateStore(ctx, conn.DB, table)
	default:
		return nil, fmt.Errorf("no database state store for %s: configure a state file instead", conn.DriverType)
	}
}
