package sqlite

import (
	"github.com/lockplane/lockstep/database"
)

// Driver implements database.Backend for SQLite and libSQL
type Driver struct {
	*Generator
}

// NewDriver creates a new SQLite driver
func NewDriver() *Driver {
	return &Driver{
		Generator: NewGenerator(),
	}
}

// Name returns the database driver name
func (d *Driver) Name() string {
	return "sqlite"
}

// SupportsFeature checks if SQLite supports a specific feature
func (d *Driver) SupportsFeature(feature database.Feature) bool {
	switch feature {
	case database.FeatureIfNotExists:
		return true
	case database.FeatureAlterColumn:
		return false // Would require table recreation
	case database.FeatureDropColumn:
		return true // SQLite 3.35.0+
	case database.FeatureTransactionalDDL:
		return true
	default:
		return false
	}
}

// Ensure Driver implements database.Backend
var _ database.Backend = (*Driver)(nil)

// Ensure Generator implements database.Dialect
var _ database.Dialect = (*Generator)(nil)
