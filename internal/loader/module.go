package loader

import (
	"go.uber.org/fx"

	"github.com/tigerroll/cropwx/pkg/batch/adapter/database"
	"github.com/tigerroll/cropwx/pkg/batch/component/tasklet/migration"
	"github.com/tigerroll/cropwx/pkg/batch/core/config"
	metrics "github.com/tigerroll/cropwx/pkg/batch/core/metrics"
	tx "github.com/tigerroll/cropwx/pkg/batch/core/tx"
)

// Params are the dependencies of the Loader.
type Params struct {
	fx.In
	Resolver  database.DBConnectionResolver
	TxFactory tx.TransactionManagerFactory
	Ensurer   migration.SchemaEnsurer
	Cfg       *config.Config
	Recorder  metrics.MetricRecorder `optional:"true"`
}

// NewFromConfig creates the Loader from the ingest configuration.
func NewFromConfig(p Params) *Loader {
	return NewLoader(p.Resolver, p.TxFactory, p.Ensurer, Options{
		DBRef:       p.Cfg.Cropwx.Infrastructure.DatabaseRef,
		BatchSize:   p.Cfg.Cropwx.Ingest.BatchSize,
		StagingMode: p.Cfg.Cropwx.Ingest.StagingMode,
		Recorder:    p.Recorder,
	})
}

// Module provides the Loader.
var Module = fx.Provide(NewFromConfig)
