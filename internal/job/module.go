package job

import (
	"go.uber.org/fx"

	"github.com/tigerroll/cropwx/internal/aggregate"
	"github.com/tigerroll/cropwx/internal/loader"
	"github.com/tigerroll/cropwx/internal/step/tasklet"
	"github.com/tigerroll/cropwx/pkg/batch/core/config"
)

func databaseRef(cfg *config.Config) string {
	return cfg.Cropwx.Infrastructure.DatabaseRef
}

// Module provides the job Factory. It needs loader.Module, aggregate.Module and migration.Module.
var Module = fx.Options(
	fx.Provide(
		fx.Annotate(databaseRef, fx.ResultTags(`name:"databaseRef"`)),
		func(l *loader.Loader) tasklet.Loader { return l },
		func(b *aggregate.Builder) tasklet.StatsBuilder { return b },
		NewFactory,
	),
)
