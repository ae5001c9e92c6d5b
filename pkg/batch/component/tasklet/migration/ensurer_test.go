package migration_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/cropwx/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/cropwx/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/cropwx/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/cropwx/pkg/batch/component/tasklet/migration"
	coreAdapter "github.com/tigerroll/cropwx/pkg/batch/core/adapter"
	model "github.com/tigerroll/cropwx/pkg/batch/core/domain/model"
	"github.com/tigerroll/cropwx/pkg/batch/support/util/exception"
	"github.com/tigerroll/cropwx/pkg/batch/test"
)

var migrations = fstest.MapFS{
	"sqlite/000001_init.up.sql":   {Data: []byte("CREATE TABLE IF NOT EXISTS t (id INTEGER PRIMARY KEY);\nCREATE TABLE IF NOT EXISTS u (id INTEGER PRIMARY KEY);\n")},
	"sqlite/000001_init.down.sql": {Data: []byte("DROP TABLE IF EXISTS u;\nDROP TABLE IF EXISTS t;\n")},
}

type countingResolver struct {
	conn  database.DBConnection
	err   error
	calls int
}

func (r *countingResolver) ResolveDBConnection(ctx context.Context, name string) (database.DBConnection, error) {
	r.calls++
	return r.conn, r.err
}

func (r *countingResolver) ResolveConnection(ctx context.Context, name string) (coreAdapter.ResourceConnection, error) {
	return r.ResolveDBConnection(ctx, name)
}

func TestEnsureSchema_InMemoryOncePerName(t *testing.T) {
	conn := test.NewSQLiteConnection(t, "default")
	resolver := &countingResolver{conn: conn}
	ensurer := migration.NewSchemaEnsurer(resolver, migrations)
	ctx := context.Background()

	require.NoError(t, ensurer.EnsureSchema(ctx, "default"))
	require.NoError(t, ensurer.EnsureSchema(ctx, "default"))
	assert.Equal(t, 1, resolver.calls)

	for _, table := range []string{"t", "u"} {
		n, err := conn.Count(ctx, table, nil)
		require.NoError(t, err, table)
		assert.Zero(t, n)
	}
}

func TestEnsureSchema_FileDatabaseUsesMigrate(t *testing.T) {
	cfg := dbconfig.DatabaseConfig{Type: "sqlite", Database: filepath.Join(t.TempDir(), "m.db")}
	db, err := gormadapter.Open(cfg, "SILENT")
	require.NoError(t, err)
	conn, err := gormadapter.NewGormDBAdapter(db, cfg, "default")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	ctx := context.Background()

	require.NoError(t, migration.NewSchemaEnsurer(test.NewSingleConnectionResolver(conn), migrations).EnsureSchema(ctx, "default"))
	// A fresh ensurer finds the recorded version and changes nothing.
	require.NoError(t, migration.NewSchemaEnsurer(test.NewSingleConnectionResolver(conn), migrations).EnsureSchema(ctx, "default"))

	n, err := conn.Count(ctx, migration.MigrationsTable, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestEnsureSchema_Errors(t *testing.T) {
	ctx := context.Background()

	err := migration.NewSchemaEnsurer(&countingResolver{err: errors.New("refused")}, migrations).EnsureSchema(ctx, "default")
	assert.True(t, exception.IsConnectionError(err))

	broken := fstest.MapFS{"sqlite/000001_init.up.sql": {Data: []byte("CREATE TABLE (;")}}
	err = migration.NewSchemaEnsurer(test.NewSingleConnectionResolver(test.NewSQLiteConnection(t, "default")), broken).EnsureSchema(ctx, "default")
	assert.True(t, exception.IsSchemaError(err))
}

func TestMigrationTasklet(t *testing.T) {
	conn := test.NewSQLiteConnection(t, "default")
	tl := migration.NewMigrationTasklet(migration.NewSchemaEnsurer(test.NewSingleConnectionResolver(conn), migrations), "default")

	status, err := tl.Execute(context.Background(), test.NewStepExecution("ensure-schema"))
	require.NoError(t, err)
	assert.Equal(t, model.ExitStatusCompleted, status)
}
