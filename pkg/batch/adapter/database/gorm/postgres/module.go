package postgres

import (
	"go.uber.org/fx"

	"github.com/tigerroll/cropwx/pkg/batch/adapter/database"
)

// Module contributes the postgres DBProvider to the db_providers group.
var Module = fx.Options(
	fx.Provide(
		fx.Annotate(
			NewProvider,
			fx.As(new(database.DBProvider)),
			fx.ResultTags(`group:"`+database.DBProviderGroup+`"`),
		),
	),
)
