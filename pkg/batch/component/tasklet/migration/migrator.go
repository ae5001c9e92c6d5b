package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/tigerroll/cropwx/pkg/batch/support/util/logger"
)

// migratorImpl runs golang-migrate on a *sql.DB it owns. The migrate drivers
// close the instance they were given, so it must not be a shared pool.
type migratorImpl struct {
	db     *sql.DB
	dbType string
}

// NewMigrator creates a Migrator that takes ownership of db.
func NewMigrator(dbType string, db *sql.DB) Migrator {
	return &migratorImpl{db: db, dbType: dbType}
}

func (m *migratorImpl) databaseDriver(tableName string) (database.Driver, error) {
	switch m.dbType {
	case "postgres":
		return postgres.WithInstance(m.db, &postgres.Config{MigrationsTable: tableName})
	case "mysql":
		return mysql.WithInstance(m.db, &mysql.Config{MigrationsTable: tableName})
	case "sqlite":
		return sqlite.WithInstance(m.db, &sqlite.Config{MigrationsTable: tableName})
	default:
		return nil, fmt.Errorf("unsupported database type for migration: %s", m.dbType)
	}
}

// Up applies every pending migration. An up-to-date schema is not an error.
func (m *migratorImpl) Up(ctx context.Context, migrationFS fs.FS, dir string, tableName string) error {
	sourceDriver, err := iofs.New(migrationFS, dir)
	if err != nil {
		return fmt.Errorf("failed to create iofs source driver for path %s: %w", dir, err)
	}
	dbDriver, err := m.databaseDriver(tableName)
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}
	mInstance, err := migrate.NewWithInstance("iofs", sourceDriver, m.dbType, dbDriver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer mInstance.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			mInstance.GracefulStop <- true
		case <-done:
		}
	}()

	if err := mInstance.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed (DB: %s, Path: %s): %w", m.dbType, dir, err)
	}
	version, dirty, _ := mInstance.Version()
	logger.Debugf("Schema migrations for %s at version %d (dirty: %t).", m.dbType, version, dirty)
	return nil
}

func (m *migratorImpl) Close() error {
	if err := m.db.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		return err
	}
	return nil
}
