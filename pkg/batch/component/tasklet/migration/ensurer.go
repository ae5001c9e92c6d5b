package migration

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/tigerroll/cropwx/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/cropwx/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/cropwx/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/cropwx/pkg/batch/support/util/exception"
	"github.com/tigerroll/cropwx/pkg/batch/support/util/logger"
)

// schemaEnsurer applies the migrations under "<db type>/" of migrationFS once per connection name.
type schemaEnsurer struct {
	resolver    database.DBConnectionResolver
	migrationFS fs.FS

	mu      sync.Mutex
	ensured map[string]bool
}

// NewSchemaEnsurer creates a SchemaEnsurer over the embedded migrations.
func NewSchemaEnsurer(resolver database.DBConnectionResolver, migrationFS fs.FS) SchemaEnsurer {
	return &schemaEnsurer{
		resolver:    resolver,
		migrationFS: migrationFS,
		ensured:     make(map[string]bool),
	}
}

// EnsureSchema creates the schema of dbRef. Repeated calls for the same name are no-ops.
func (e *schemaEnsurer) EnsureSchema(ctx context.Context, dbRef string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ensured[dbRef] {
		return nil
	}

	conn, err := e.resolver.ResolveDBConnection(ctx, dbRef)
	if err != nil {
		return exception.NewConnectionError("migration", fmt.Sprintf("failed to resolve database connection '%s'", dbRef), err)
	}
	cfg := conn.Config()

	if isInMemory(cfg) {
		err = e.applyDirect(ctx, conn, cfg.Type)
	} else {
		err = e.applyMigrations(ctx, cfg)
	}
	if err != nil {
		return exception.NewSchemaError("migration", fmt.Sprintf("failed to ensure schema on '%s'", dbRef), err)
	}
	e.ensured[dbRef] = true
	logger.Infof("Schema ensured on database '%s' (%s).", dbRef, cfg.Type)
	return nil
}

// applyMigrations runs golang-migrate on a dedicated connection.
func (e *schemaEnsurer) applyMigrations(ctx context.Context, cfg dbconfig.DatabaseConfig) error {
	gdb, err := gormadapter.Open(cfg, "SILENT")
	if err != nil {
		return err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	m := NewMigrator(cfg.Type, sqlDB)
	defer m.Close()
	return m.Up(ctx, e.migrationFS, cfg.Type, MigrationsTable)
}

// applyDirect executes the up scripts on the shared connection. An in-memory
// database exists only inside its pool, so a dedicated connection would see an empty database.
// The scripts are written with IF NOT EXISTS and can be replayed.
func (e *schemaEnsurer) applyDirect(ctx context.Context, conn database.DBConnection, dbType string) error {
	sqlDB, err := conn.GetSQLDB()
	if err != nil {
		return err
	}
	scripts, err := fs.Glob(e.migrationFS, path.Join(dbType, "*.up.sql"))
	if err != nil {
		return err
	}
	if len(scripts) == 0 {
		return fmt.Errorf("no migrations found for database type %s", dbType)
	}
	sort.Strings(scripts)
	for _, script := range scripts {
		body, err := fs.ReadFile(e.migrationFS, script)
		if err != nil {
			return err
		}
		for _, stmt := range strings.Split(string(body), ";") {
			if strings.TrimSpace(stmt) == "" {
				continue
			}
			if _, err := sqlDB.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("%s: %w", script, err)
			}
		}
	}
	return nil
}

func isInMemory(cfg dbconfig.DatabaseConfig) bool {
	return cfg.Type == "sqlite" && (cfg.Database == ":memory:" || strings.Contains(cfg.Database, "mode=memory"))
}
