// Package postgres registers the PostgreSQL dialector and DBProvider.
package postgres

import (
	"fmt"
	"strings"

	dbconfig "github.com/tigerroll/cropwx/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/cropwx/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/cropwx/pkg/batch/core/config"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func init() {
	gormadapter.RegisterDialector("postgres", func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		return postgres.New(postgres.Config{DSN: ConnectionString(cfg)}), nil
	})
}

// ConnectionString builds a libpq keyword/value DSN. Empty settings are omitted.
func ConnectionString(c dbconfig.DatabaseConfig) string {
	parts := make([]string, 0, 6)
	add := func(k, v string) {
		if v != "" {
			parts = append(parts, fmt.Sprintf("%s=%s", k, quote(v)))
		}
	}
	add("host", c.Host)
	if c.Port > 0 {
		add("port", fmt.Sprintf("%d", c.Port))
	}
	add("user", c.User)
	add("password", c.Password)
	add("dbname", c.Database)
	sslmode := c.Sslmode
	if sslmode == "" {
		sslmode = "disable"
	}
	add("sslmode", sslmode)
	return strings.Join(parts, " ")
}

func quote(v string) string {
	if !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// PostgresDBProvider provides PostgreSQL connections.
type PostgresDBProvider struct {
	*gormadapter.BaseProvider
}

// NewProvider creates the PostgreSQL DBProvider.
func NewProvider(cfg *config.Config) *PostgresDBProvider {
	return &PostgresDBProvider{BaseProvider: gormadapter.NewBaseProvider(cfg, "postgres")}
}
