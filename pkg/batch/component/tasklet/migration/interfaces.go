// Package migration applies the embedded schema migrations of the application.
package migration

import (
	"context"
	"io/fs"
)

// MigrationsTable tracks the applied migration version.
const MigrationsTable = "cropwx_schema_migrations"

// Migrator handles database schema migrations.
type Migrator interface {
	// Up applies all pending migrations found under dir in migrationFS.
	Up(ctx context.Context, migrationFS fs.FS, dir string, tableName string) error
	// Close releases the connection owned by the migrator.
	Close() error
}

// SchemaEnsurer creates the application schema on a named connection if it is missing.
type SchemaEnsurer interface {
	EnsureSchema(ctx context.Context, dbRef string) error
}
