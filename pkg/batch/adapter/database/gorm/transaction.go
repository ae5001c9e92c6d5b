package gorm

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/tigerroll/cropwx/pkg/batch/adapter/database"
	tx "github.com/tigerroll/cropwx/pkg/batch/core/tx"
)

// GormTxAdapter is the gorm implementation of tx.Tx.
type GormTxAdapter struct {
	db      *gorm.DB
	dialect string
}

// Dialect implements tx.Tx.
func (t *GormTxAdapter) Dialect() string {
	return t.dialect
}

// ExecuteUpdate implements tx.TxExecutor.
func (t *GormTxAdapter) ExecuteUpdate(ctx context.Context, model interface{}, operation string, tableName string, query map[string]interface{}) (rowsAffected int64, err error) {
	return executeUpdate(t.db.WithContext(ctx), model, operation, tableName, query)
}

// ExecuteUpsert implements tx.TxExecutor.
func (t *GormTxAdapter) ExecuteUpsert(ctx context.Context, model interface{}, tableName string, conflictColumns []string, updateColumns []string) (rowsAffected int64, err error) {
	return executeUpsert(t.db.WithContext(ctx), model, tableName, conflictColumns, updateColumns)
}

// ExecuteRaw implements tx.TxExecutor.
func (t *GormTxAdapter) ExecuteRaw(ctx context.Context, statement string, args ...interface{}) (rowsAffected int64, err error) {
	result := t.db.WithContext(ctx).Exec(statement, args...)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Count implements tx.TxExecutor.
func (t *GormTxAdapter) Count(ctx context.Context, tableName string, q tx.Query) (int64, error) {
	var count int64
	if err := scoped(t.db.WithContext(ctx).Table(tableName), q).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// QueryRows implements tx.TxExecutor.
func (t *GormTxAdapter) QueryRows(ctx context.Context, tableName string, q tx.Query) (*sql.Rows, error) {
	db := scoped(t.db.WithContext(ctx).Table(tableName), q)
	if len(q.Columns) > 0 {
		db = db.Select(q.Columns)
	}
	if q.OrderBy != "" {
		db = db.Order(q.OrderBy)
	}
	return db.Rows()
}

func scoped(db *gorm.DB, q tx.Query) *gorm.DB {
	if strings.TrimSpace(q.Where) != "" {
		db = db.Where(q.Where, q.Args...)
	}
	return db
}

// GormTransactionManager begins gorm transactions on a named connection.
// The connection is resolved on every Begin so a broken pool is re-established.
type GormTransactionManager struct {
	dbResolver database.DBConnectionResolver
	dbName     string
}

// Begin implements tx.TransactionManager.
func (m *GormTransactionManager) Begin(ctx context.Context, opts ...*sql.TxOptions) (tx.Tx, error) {
	conn, err := m.dbResolver.ResolveDBConnection(ctx, m.dbName)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve DB connection '%s' for transaction: %w", m.dbName, err)
	}
	adapter, ok := conn.(*GormDBAdapter)
	if !ok {
		return nil, fmt.Errorf("internal error: DBConnection implementation is not *GormDBAdapter")
	}

	var txOpts *sql.TxOptions
	if len(opts) > 0 && opts[0] != nil {
		txOpts = opts[0]
	}

	gormTx := adapter.GetGormDB().WithContext(ctx).Begin(txOpts)
	if gormTx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", gormTx.Error)
	}
	return &GormTxAdapter{db: gormTx, dialect: adapter.Type()}, nil
}

// Commit implements tx.TransactionManager.
func (m *GormTransactionManager) Commit(t tx.Tx) error {
	gormTxAdapter, ok := t.(*GormTxAdapter)
	if !ok {
		return fmt.Errorf("invalid transaction type: expected *GormTxAdapter")
	}
	return gormTxAdapter.db.Commit().Error
}

// Rollback implements tx.TransactionManager.
func (m *GormTransactionManager) Rollback(t tx.Tx) error {
	gormTxAdapter, ok := t.(*GormTxAdapter)
	if !ok {
		return fmt.Errorf("invalid transaction type: expected *GormTxAdapter")
	}
	return gormTxAdapter.db.Rollback().Error
}

// GormTransactionManagerFactory is the gorm implementation of tx.TransactionManagerFactory.
type GormTransactionManagerFactory struct {
	dbResolver database.DBConnectionResolver
}

// NewGormTransactionManagerFactory creates an instance of GormTransactionManagerFactory.
func NewGormTransactionManagerFactory(dbResolver database.DBConnectionResolver) tx.TransactionManagerFactory {
	return &GormTransactionManagerFactory{dbResolver: dbResolver}
}

// NewTransactionManager returns a manager bound to conn's configuration name.
func (f *GormTransactionManagerFactory) NewTransactionManager(conn database.DBConnection) tx.TransactionManager {
	return &GormTransactionManager{
		dbResolver: f.dbResolver,
		dbName:     conn.Name(),
	}
}
