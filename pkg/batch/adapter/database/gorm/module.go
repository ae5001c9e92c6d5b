package gorm

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/cropwx/pkg/batch/adapter/database"
	coreAdapter "github.com/tigerroll/cropwx/pkg/batch/core/adapter"
)

func registerCloseHook(lc fx.Lifecycle, r *GormDBConnectionResolver) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return r.CloseAll()
		},
	})
}

// Module provides the connection resolver and the transaction manager factory.
// Dialect providers are contributed by the postgres, mysql and sqlite sub-packages.
var Module = fx.Options(
	fx.Provide(NewGormDBConnectionResolver),
	fx.Provide(func(r *GormDBConnectionResolver) database.DBConnectionResolver { return r }),
	fx.Provide(func(r *GormDBConnectionResolver) coreAdapter.ResourceConnectionResolver { return r }),
	fx.Provide(NewGormTransactionManagerFactory),
	fx.Invoke(registerCloseHook),
)
