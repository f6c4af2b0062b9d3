package postgres

import (
	"github.com/lockplane/lockstep/database"
)

// Driver implements database.Backend for PostgreSQL
type Driver struct {
	*Generator
}

// NewDriver creates a new PostgreSQL driver
func NewDriver() *Driver {
	return &Driver{
		Generator: NewGenerator(),
	}
}

// Name returns the database driver name
func (d *Driver) Name() string {
	return "postgres"
}

// SupportsFeature checks if PostgreSQL supports a specific feature
func (d *Driver) SupportsFeature(feature database.Feature) bool {
	switch feature {
	case database.FeatureIfNotExists,
		database.FeatureAlterColumn,
		database.FeatureDropColumn,
		database.FeatureTransactionalDDL:
		return true
	default:
		return false
	}
}

// Ensure Driver implements database.Backend
var _ database.Backend = (*Driver)(nil)

// Ensure Generator implements database.Dialect
var _ database.Dialect = (*Generator)(nil)
