// Package tx defines the transaction abstraction used by components that
// must apply several statements atomically.
package tx

import (
	"context"
	"database/sql"

	"github.com/tigerroll/cropwx/pkg/batch/adapter/database"
)

// Query narrows a table read or count inside a transaction.
// Where uses "?" placeholders; the adapter rebinds them for the dialect.
type Query struct {
	Columns []string
	Where   string
	Args    []interface{}
	OrderBy string
}

// TxExecutor defines the operations that can be executed within a transaction.
type TxExecutor interface {
	// ExecuteUpdate performs CREATE, UPDATE or DELETE on tableName.
	// A DELETE with an empty query removes every row of the table.
	ExecuteUpdate(ctx context.Context, model interface{}, operation string, tableName string, query map[string]interface{}) (rowsAffected int64, err error)

	// ExecuteUpsert inserts model into tableName. Conflicts on conflictColumns
	// update updateColumns, or are ignored when updateColumns is empty.
	ExecuteUpsert(ctx context.Context, model interface{}, tableName string, conflictColumns []string, updateColumns []string) (rowsAffected int64, err error)

	// ExecuteRaw runs a statement that returns no rows.
	ExecuteRaw(ctx context.Context, statement string, args ...interface{}) (rowsAffected int64, err error)

	// Count returns the number of rows of tableName matching q.
	Count(ctx context.Context, tableName string, q Query) (int64, error)

	// QueryRows streams the rows of tableName matching q. The caller closes the rows.
	QueryRows(ctx context.Context, tableName string, q Query) (*sql.Rows, error)
}

// Tx is an open transaction.
type Tx interface {
	TxExecutor

	// Dialect returns the database type the transaction runs against.
	Dialect() string
}

// TransactionManager begins and ends transactions on one named connection.
type TransactionManager interface {
	Begin(ctx context.Context, opts ...*sql.TxOptions) (Tx, error)
	Commit(tx Tx) error
	Rollback(tx Tx) error
}

// TransactionManagerFactory creates a TransactionManager bound to a connection.
type TransactionManagerFactory interface {
	NewTransactionManager(conn database.DBConnection) TransactionManager
}
