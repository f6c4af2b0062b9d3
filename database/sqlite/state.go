package sqlite

import (
	"context"
	"database/sql"

	"github.com/lockplane/lockstep/database"
)

// NewStateStore returns a SQLite-backed migration state store, creating the
// state table when it does not exist yet.
func NewStateStore(ctx context.Context, db *sql.DB, table string) (*database.StateTable, error) {
	return database.NewStateTable(ctx, db, NewGenerator(), table)
}
