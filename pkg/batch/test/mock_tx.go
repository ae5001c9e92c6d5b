package test

import (
	"context"
	"database/sql"

	"github.com/stretchr/testify/mock"

	tx "github.com/tigerroll/cropwx/pkg/batch/core/tx"
)

// MockTx is a mock implementation of the tx.Tx interface.
type MockTx struct {
	mock.Mock
}

func (m *MockTx) ExecuteUpdate(ctx context.Context, model interface{}, operation string, tableName string, query map[string]interface{}) (rowsAffected int64, err error) {
	args := m.Called(ctx, model, operation, tableName, query)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTx) ExecuteUpsert(ctx context.Context, model interface{}, tableName string, conflictColumns []string, updateColumns []string) (rowsAffected int64, err error) {
	args := m.Called(ctx, model, tableName, conflictColumns, updateColumns)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTx) ExecuteRaw(ctx context.Context, statement string, params ...interface{}) (rowsAffected int64, err error) {
	args := m.Called(ctx, statement, params)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTx) Count(ctx context.Context, tableName string, q tx.Query) (int64, error) {
	args := m.Called(ctx, tableName, q)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTx) QueryRows(ctx context.Context, tableName string, q tx.Query) (*sql.Rows, error) {
	args := m.Called(ctx, tableName, q)
	rows, _ := args.Get(0).(*sql.Rows)
	return rows, args.Error(1)
}

func (m *MockTx) Dialect() string {
	return m.Called().String(0)
}

// MockTxManager is a mock implementation of the tx.TransactionManager interface.
type MockTxManager struct {
	mock.Mock
}

func (m *MockTxManager) Begin(ctx context.Context, opts ...*sql.TxOptions) (tx.Tx, error) {
	args := m.Called(ctx)
	t, _ := args.Get(0).(tx.Tx)
	return t, args.Error(1)
}

func (m *MockTxManager) Commit(t tx.Tx) error {
	return m.Called(t).Error(0)
}

func (m *MockTxManager) Rollback(t tx.Tx) error {
	return m.Called(t).Error(0)
}

var (
	_ tx.Tx                 = (*MockTx)(nil)
	_ tx.TransactionManager = (*MockTxManager)(nil)
)
