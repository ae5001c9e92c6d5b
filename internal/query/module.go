package query

import (
	"go.uber.org/fx"

	"github.com/tigerroll/cropwx/pkg/batch/adapter/database"
	"github.com/tigerroll/cropwx/pkg/batch/core/config"
)

func newServiceFromConfig(resolver database.DBConnectionResolver, cfg *config.Config) *Service {
	return NewService(resolver, cfg.Cropwx.Infrastructure.DatabaseRef, cfg.Cropwx.API.DefaultLimit, cfg.Cropwx.API.MaxLimit)
}

// Module provides the query Service.
var Module = fx.Provide(newServiceFromConfig)
