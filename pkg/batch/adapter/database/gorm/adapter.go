package gorm

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tigerroll/cropwx/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/cropwx/pkg/batch/adapter/database/config"
	"github.com/tigerroll/cropwx/pkg/batch/support/util/logger"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// upsertBatchSize caps the rows per INSERT statement generated for slices.
// It keeps statements under the bind variable limits of every supported engine.
const upsertBatchSize = 1000

// GormDBAdapter implements database.DBConnection on top of gorm.
type GormDBAdapter struct {
	db     *gorm.DB
	sqlDB  *sql.DB
	cfg    dbconfig.DatabaseConfig
	dbType string
	name   string
}

// NewGormDBAdapter wraps an open gorm session.
func NewGormDBAdapter(db *gorm.DB, cfg dbconfig.DatabaseConfig, name string) (*GormDBAdapter, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying *sql.DB: %w", err)
	}
	return &GormDBAdapter{
		db:     db,
		sqlDB:  sqlDB,
		cfg:    cfg,
		dbType: cfg.Type,
		name:   name,
	}, nil
}

// GetGormDB returns the underlying *gorm.DB instance.
// Only the transaction manager of this package uses it.
func (a *GormDBAdapter) GetGormDB() *gorm.DB {
	return a.db
}

func (a *GormDBAdapter) Close() error {
	if a.sqlDB != nil {
		logger.Infof("Closing database connection '%s'...", a.name)
		return a.sqlDB.Close()
	}
	return nil
}

func (a *GormDBAdapter) Type() string {
	return a.dbType
}

func (a *GormDBAdapter) Name() string {
	return a.name
}

// RefreshConnection implements database.DBConnection.
func (a *GormDBAdapter) RefreshConnection(ctx context.Context) error {
	if a.sqlDB == nil {
		return fmt.Errorf("database connection is not initialized")
	}
	return a.sqlDB.PingContext(ctx)
}

// Config implements database.DBConnection.
func (a *GormDBAdapter) Config() dbconfig.DatabaseConfig {
	return a.cfg
}

// GetSQLDB implements database.DBConnection.
func (a *GormDBAdapter) GetSQLDB() (*sql.DB, error) {
	if a.sqlDB == nil {
		return nil, fmt.Errorf("underlying sql.DB is nil")
	}
	return a.sqlDB, nil
}

// IsTableNotExistError implements database.DBConnection.
func (a *GormDBAdapter) IsTableNotExistError(err error) bool {
	return isTableNotExistError(err)
}

// ExecuteQueryAdvanced implements database.DBExecutor.
func (a *GormDBAdapter) ExecuteQueryAdvanced(ctx context.Context, target interface{}, tableName string, query map[string]interface{}, orderBy string, offset, limit int) error {
	db := a.db.WithContext(ctx).Table(tableName)
	if len(query) > 0 {
		db = db.Where(query)
	}
	if orderBy != "" {
		db = db.Order(orderBy)
	}
	if offset > 0 {
		db = db.Offset(offset)
	}
	if limit > 0 {
		db = db.Limit(limit)
	}
	return db.Find(target).Error
}

// Count implements database.DBExecutor.
func (a *GormDBAdapter) Count(ctx context.Context, tableName string, query map[string]interface{}) (int64, error) {
	db := a.db.WithContext(ctx).Table(tableName)
	if len(query) > 0 {
		db = db.Where(query)
	}
	var count int64
	if err := db.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExecuteUpdate implements database.DBExecutor.
func (a *GormDBAdapter) ExecuteUpdate(ctx context.Context, model interface{}, operation string, tableName string, query map[string]interface{}) (rowsAffected int64, err error) {
	db := a.db.WithContext(ctx).Session(&gorm.Session{SkipDefaultTransaction: true})
	return executeUpdate(db, model, operation, tableName, query)
}

// ExecuteUpsert implements database.DBExecutor.
func (a *GormDBAdapter) ExecuteUpsert(ctx context.Context, model interface{}, tableName string, conflictColumns []string, updateColumns []string) (rowsAffected int64, err error) {
	db := a.db.WithContext(ctx).Session(&gorm.Session{SkipDefaultTransaction: true})
	return executeUpsert(db, model, tableName, conflictColumns, updateColumns)
}

func executeUpdate(db *gorm.DB, model interface{}, operation string, tableName string, query map[string]interface{}) (int64, error) {
	if tableName != "" {
		db = db.Table(tableName)
	}

	var result *gorm.DB
	switch operation {
	case "CREATE":
		result = db.Session(&gorm.Session{CreateBatchSize: upsertBatchSize}).Create(model)
	case "UPDATE":
		result = db.Model(model).Where(query).Updates(model)
	case "DELETE":
		if len(query) > 0 {
			db = db.Where(query)
		} else {
			db = db.Session(&gorm.Session{AllowGlobalUpdate: true})
		}
		result = db.Delete(model)
	default:
		return 0, fmt.Errorf("unsupported update operation: %s", operation)
	}

	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func executeUpsert(db *gorm.DB, model interface{}, tableName string, conflictColumns []string, updateColumns []string) (int64, error) {
	if tableName != "" {
		db = db.Table(tableName)
	}

	columns := make([]clause.Column, 0, len(conflictColumns))
	for _, col := range conflictColumns {
		columns = append(columns, clause.Column{Name: col})
	}
	onConflict := clause.OnConflict{Columns: columns}
	if len(updateColumns) > 0 {
		onConflict.DoUpdates = clause.AssignmentColumns(updateColumns)
	} else {
		onConflict.DoNothing = true
	}

	result := db.Session(&gorm.Session{CreateBatchSize: upsertBatchSize}).Clauses(onConflict).Create(model)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func isTableNotExistError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	return (strings.Contains(errMsg, "relation \"") && strings.Contains(errMsg, "\" does not exist")) || // PostgreSQL
		(strings.Contains(errMsg, "Error 1146") && strings.Contains(errMsg, "doesn't exist")) || // MySQL
		strings.Contains(errMsg, "no such table:") // SQLite
}

var _ database.DBConnection = (*GormDBAdapter)(nil)
