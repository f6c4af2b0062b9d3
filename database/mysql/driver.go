package mysql

import (
	"github.com/lockplane/lockstep/database"
)

// Driver implements database.Backend for MySQL
type Driver struct {
	*Generator
}

// NewDriver creates a new MySQL driver
func NewDriver() *Driver {
	return &Driver{
		Generator: NewGenerator(),
	}
}

// Name returns the database driver name
func (d *Driver) Name() string {
	return "mysql"
}

// SupportsFeature checks if MySQL supports a specific feature
func (d *Driver) SupportsFeature(feature database.Feature) bool {
	switch feature {
	case database.FeatureIfNotExists,
		database.FeatureAlterColumn,
		database.FeatureDropColumn:
		return true
	case database.FeatureTransactionalDDL:
		return false // DDL causes an implicit commit
	default:
		return false
	}
}

// Ensure Driver implements database.Backend
var _ database.Backend = (*Driver)(nil)

// Ensure Driver implements database.ChangeValidator
var _ database.ChangeValidator = (*Driver)(nil)
