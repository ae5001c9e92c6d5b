// Package test provides database and execution fixtures for package tests.
package test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tigerroll/cropwx/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/cropwx/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/cropwx/pkg/batch/adapter/database/gorm"
	_ "github.com/tigerroll/cropwx/pkg/batch/adapter/database/gorm/sqlite"
	coreAdapter "github.com/tigerroll/cropwx/pkg/batch/core/adapter"
)

// NewSQLiteConnection opens a private in-memory SQLite database named name.
// The pool is pinned to one connection, which holds the database for the test's lifetime.
func NewSQLiteConnection(t testing.TB, name string) database.DBConnection {
	t.Helper()
	cfg := dbconfig.DatabaseConfig{
		Type:     "sqlite",
		Database: ":memory:",
		Pool:     dbconfig.PoolConfig{MaxOpenConns: 1, MaxIdleConns: 1},
	}
	db, err := gormadapter.Open(cfg, "SILENT")
	require.NoError(t, err)

	conn, err := gormadapter.NewGormDBAdapter(db, cfg, name)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// NewPostgresMock returns a postgres-typed connection backed by go-sqlmock.
func NewPostgresMock(t testing.TB, name string) (database.DBConnection, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:                 gormadapter.NewGormLogger("SILENT"),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	conn, err := gormadapter.NewGormDBAdapter(db, dbconfig.DatabaseConfig{Type: "postgres"}, name)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn, mock
}

// SingleConnectionResolver resolves every name to one connection.
type SingleConnectionResolver struct {
	Conn database.DBConnection
}

// NewSingleConnectionResolver creates a resolver around conn.
func NewSingleConnectionResolver(conn database.DBConnection) *SingleConnectionResolver {
	return &SingleConnectionResolver{Conn: conn}
}

func (r *SingleConnectionResolver) ResolveDBConnection(ctx context.Context, name string) (database.DBConnection, error) {
	return r.Conn, nil
}

func (r *SingleConnectionResolver) ResolveConnection(ctx context.Context, name string) (coreAdapter.ResourceConnection, error) {
	return r.Conn, nil
}

var _ database.DBConnectionResolver = (*SingleConnectionResolver)(nil)
