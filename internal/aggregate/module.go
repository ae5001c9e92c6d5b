package aggregate

import (
	"go.uber.org/fx"

	"github.com/tigerroll/cropwx/pkg/batch/adapter/database"
	"github.com/tigerroll/cropwx/pkg/batch/core/config"
	tx "github.com/tigerroll/cropwx/pkg/batch/core/tx"
)

func newBuilderFromConfig(resolver database.DBConnectionResolver, txFactory tx.TransactionManagerFactory, cfg *config.Config) *Builder {
	return NewBuilder(resolver, txFactory, cfg.Cropwx.Infrastructure.DatabaseRef, cfg.Cropwx.Ingest.BatchSize)
}

// Module provides the Builder.
var Module = fx.Provide(newBuilderFromConfig)
