package migration

import (
	"io/fs"

	"go.uber.org/fx"

	"github.com/tigerroll/cropwx/pkg/batch/adapter/database"
)

// MigrationsFSTag names the fs.FS holding the application migrations.
const MigrationsFSTag = `name:"migrationsFS"`

// EnsurerParams are the dependencies of the SchemaEnsurer.
type EnsurerParams struct {
	fx.In
	Resolver    database.DBConnectionResolver
	MigrationFS fs.FS `name:"migrationsFS"`
}

func newSchemaEnsurer(p EnsurerParams) SchemaEnsurer {
	return NewSchemaEnsurer(p.Resolver, p.MigrationFS)
}

// Module provides the SchemaEnsurer.
var Module = fx.Options(
	fx.Provide(newSchemaEnsurer),
)
