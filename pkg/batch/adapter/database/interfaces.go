package database

import (
	"context"
	"database/sql"

	dbconfig "github.com/tigerroll/cropwx/pkg/batch/adapter/database/config"
	coreAdapter "github.com/tigerroll/cropwx/pkg/batch/core/adapter"
)

// DBExecutor defines the read and write operations available on a connection
// outside of a managed transaction.
type DBExecutor interface {
	// ExecuteUpdate performs write operations (CREATE, UPDATE, DELETE).
	ExecuteUpdate(ctx context.Context, model interface{}, operation string, tableName string, query map[string]interface{}) (rowsAffected int64, err error)

	// ExecuteUpsert performs an INSERT ... ON CONFLICT.
	ExecuteUpsert(ctx context.Context, model interface{}, tableName string, conflictColumns []string, updateColumns []string) (rowsAffected int64, err error)

	// ExecuteQueryAdvanced reads rows of tableName into target with equality filters,
	// ordering and an offset/limit window. A non-positive limit reads every row.
	ExecuteQueryAdvanced(ctx context.Context, target interface{}, tableName string, query map[string]interface{}, orderBy string, offset, limit int) error

	// Count counts the rows of tableName matching the equality filters.
	Count(ctx context.Context, tableName string, query map[string]interface{}) (int64, error)
}

// DBConnection represents an abstraction of a database connection.
type DBConnection interface {
	coreAdapter.ResourceConnection
	DBExecutor

	// IsTableNotExistError checks if the given error indicates that a table does not exist.
	IsTableNotExistError(err error) bool
	// RefreshConnection pings the pool and reports whether it is usable.
	RefreshConnection(ctx context.Context) error
	// Config returns the database configuration associated with this connection.
	Config() dbconfig.DatabaseConfig
	// GetSQLDB returns the underlying *sql.DB connection.
	GetSQLDB() (*sql.DB, error)
}

// DBConnectionResolver resolves a live database connection by configuration name.
type DBConnectionResolver interface {
	coreAdapter.ResourceConnectionResolver

	// ResolveDBConnection returns the named connection, reconnecting it if the pool is broken.
	ResolveDBConnection(ctx context.Context, name string) (DBConnection, error)
}

// DBProvider provides database connections of one type based on configuration.
type DBProvider interface {
	// GetConnection retrieves a database connection with the specified name.
	GetConnection(name string) (DBConnection, error)
	// CloseAll closes all connections managed by this provider.
	CloseAll() error
	// Type returns the database type handled by this provider (e.g., "postgres").
	Type() string
	// ForceReconnect closes and re-establishes the named connection.
	ForceReconnect(name string) (DBConnection, error)
}

// DBProviderGroup is the Fx value group collecting every DBProvider.
const DBProviderGroup = "db_providers"
