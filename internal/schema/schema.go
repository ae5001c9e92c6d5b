// Package schema embeds the DDL of the cropwx tables, one directory per database type.
package schema

import (
	"embed"
	"io/fs"

	"go.uber.org/fx"
)

//go:embed migrations
var migrations embed.FS

// FS returns the migrations rooted so that "<db type>/" is a top-level directory.
func FS() fs.FS {
	sub, err := fs.Sub(migrations, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Module supplies the migrations to the schema ensurer.
var Module = fx.Provide(
	fx.Annotate(FS, fx.ResultTags(`name:"migrationsFS"`)),
)
