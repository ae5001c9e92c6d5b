// Package mysql registers the MySQL dialector and DBProvider.
package mysql

import (
	"fmt"

	mysqldriver "github.com/go-sql-driver/mysql"

	dbconfig "github.com/tigerroll/cropwx/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/cropwx/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/cropwx/pkg/batch/core/config"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func init() {
	gormadapter.RegisterDialector("mysql", func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		return mysql.Open(ConnectionString(cfg)), nil
	})
}

// ConnectionString builds a go-sql-driver DSN. DATE columns are scanned into time.Time.
func ConnectionString(c dbconfig.DatabaseConfig) string {
	dsn := mysqldriver.NewConfig()
	dsn.User = c.User
	dsn.Passwd = c.Password
	dsn.Net = "tcp"
	port := c.Port
	if port == 0 {
		port = 3306
	}
	dsn.Addr = fmt.Sprintf("%s:%d", c.Host, port)
	dsn.DBName = c.Database
	dsn.ParseTime = true
	dsn.MultiStatements = true
	return dsn.FormatDSN()
}

// MySQLDBProvider provides MySQL connections.
type MySQLDBProvider struct {
	*gormadapter.BaseProvider
}

// NewProvider creates the MySQL DBProvider.
func NewProvider(cfg *config.Config) *MySQLDBProvider {
	return &MySQLDBProvider{BaseProvider: gormadapter.NewBaseProvider(cfg, "mysql")}
}
