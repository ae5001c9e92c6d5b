// Package sqlite registers the SQLite dialector and DBProvider.
package sqlite

import (
	"errors"

	dbconfig "github.com/tigerroll/cropwx/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/cropwx/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/cropwx/pkg/batch/core/config"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func init() {
	gormadapter.RegisterDialector("sqlite", func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		if cfg.Database == "" {
			return nil, errors.New("SQLite database path cannot be empty")
		}
		return sqlite.Open(cfg.Database), nil
	})
}

// SQLiteDBProvider provides SQLite connections.
type SQLiteDBProvider struct {
	*gormadapter.BaseProvider
}

// NewProvider creates the SQLite DBProvider.
func NewProvider(cfg *config.Config) *SQLiteDBProvider {
	return &SQLiteDBProvider{BaseProvider: gormadapter.NewBaseProvider(cfg, "sqlite")}
}
