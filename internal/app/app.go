// Package app assembles the fx applications behind the cropwx subcommands.
package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/fx"

	"github.com/tigerroll/cropwx/internal/aggregate"
	"github.com/tigerroll/cropwx/internal/api"
	"github.com/tigerroll/cropwx/internal/job"
	"github.com/tigerroll/cropwx/internal/loader"
	"github.com/tigerroll/cropwx/internal/query"
	"github.com/tigerroll/cropwx/internal/schema"
	gormadapter "github.com/tigerroll/cropwx/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/cropwx/pkg/batch/adapter/database/gorm/mysql"
	"github.com/tigerroll/cropwx/pkg/batch/adapter/database/gorm/postgres"
	"github.com/tigerroll/cropwx/pkg/batch/adapter/database/gorm/sqlite"
	"github.com/tigerroll/cropwx/pkg/batch/adapter/storage"
	"github.com/tigerroll/cropwx/pkg/batch/adapter/storage/gcs"
	"github.com/tigerroll/cropwx/pkg/batch/adapter/storage/local"
	"github.com/tigerroll/cropwx/pkg/batch/component/tasklet/migration"
	port "github.com/tigerroll/cropwx/pkg/batch/core/application/port"
	config "github.com/tigerroll/cropwx/pkg/batch/core/config"
	model "github.com/tigerroll/cropwx/pkg/batch/core/domain/model"
	"github.com/tigerroll/cropwx/pkg/batch/core/job/runner"
	"github.com/tigerroll/cropwx/pkg/batch/core/support/incrementer"
	metricsinfra "github.com/tigerroll/cropwx/pkg/batch/infrastructure/metrics"
	batchlistener "github.com/tigerroll/cropwx/pkg/batch/listener"
	"github.com/tigerroll/cropwx/pkg/batch/support/util/logger"
)

// LoadConfig loads the configuration, applies overrides (usually CLI flags) and configures logging.
func LoadConfig(envFilePath string, embedded config.EmbeddedConfig, overrides ...func(*config.Config)) (*config.Config, error) {
	cfg, err := config.LoadConfig(envFilePath, embedded)
	if err != nil {
		return nil, err
	}
	for _, o := range overrides {
		o(cfg)
	}
	logger.SetFormat(cfg.Cropwx.System.Logging.Format)
	logger.SetLogLevel(cfg.Cropwx.System.Logging.Level)
	logger.Debugf("Log level set to: %s", cfg.Cropwx.System.Logging.Level)
	return cfg, nil
}

var dbProviderModules = map[string]fx.Option{
	"postgres": postgres.Module,
	"mysql":    mysql.Module,
	"sqlite":   sqlite.Module,
}

// dbProviders registers the providers named in a comma-separated list. An empty list registers all of them.
func dbProviders(names string) fx.Option {
	if strings.TrimSpace(names) == "" {
		names = "postgres,mysql,sqlite"
	}
	opts := make([]fx.Option, 0, len(dbProviderModules))
	for _, name := range strings.Split(names, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		m, ok := dbProviderModules[name]
		if !ok {
			logger.Warnf("DB provider '%s' is not supported. Skipping.", name)
			continue
		}
		opts = append(opts, m)
	}
	return fx.Options(opts...)
}

// infrastructure is shared by every subcommand: configuration, logging, databases and telemetry.
func infrastructure(cfg *config.Config) fx.Option {
	return fx.Options(
		fx.Supply(cfg),
		logger.Module,
		config.Module,
		gormadapter.Module,
		dbProviders(os.Getenv("DB_ADAPTORS")),
		schema.Module,
		migration.Module,
		metricsinfra.Module,
	)
}

func batch() fx.Option {
	return fx.Options(
		storage.Module,
		local.Module,
		gcs.Module,
		loader.Module,
		aggregate.Module,
		batchlistener.Module,
		incrementer.Module,
		runner.Module,
		job.Module,
	)
}

// JobBuilder picks the job to run from the factory.
type JobBuilder func(f *job.Factory) port.Job

// RunJob starts a batch application, runs one job to completion and stops the application.
// The returned error is the job's error, or the startup error when the job never ran.
func RunJob(ctx context.Context, cfg *config.Config, build JobBuilder, params model.JobParameters) (*model.JobExecution, error) {
	var (
		factory   *job.Factory
		jobRunner *runner.SimpleJobRunner
	)
	app := fx.New(
		infrastructure(cfg),
		batch(),
		fx.Populate(&factory, &jobRunner),
	)
	if err := start(ctx, app); err != nil {
		return nil, err
	}
	defer stop(app)

	j := build(factory)
	logger.Infof("Starting job '%s' with parameters %s.", j.JobName(), params)
	return jobRunner.Run(ctx, j, params)
}

// Serve runs the HTTP read API until ctx is cancelled or the process receives a stop signal.
func Serve(ctx context.Context, cfg *config.Config) error {
	app := fx.New(
		infrastructure(cfg),
		query.Module,
		api.Module,
		fx.Invoke(ensureSchemaOnStart),
	)
	if err := start(ctx, app); err != nil {
		return err
	}
	defer stop(app)

	select {
	case <-ctx.Done():
		logger.Infof("Context cancelled, stopping the HTTP API.")
	case sig := <-app.Done():
		logger.Infof("Received %s, stopping the HTTP API.", sig)
	}
	return nil
}

func ensureSchemaOnStart(lc fx.Lifecycle, ensurer migration.SchemaEnsurer, cfg *config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return ensurer.EnsureSchema(ctx, cfg.Cropwx.Infrastructure.DatabaseRef)
		},
	})
}

func start(ctx context.Context, app *fx.App) error {
	if err := app.Err(); err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}
	startCtx, cancel := context.WithTimeout(ctx, app.StartTimeout())
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}
	return nil
}

func stop(app *fx.App) {
	stopCtx, cancel := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		logger.Errorf("Failed to stop application cleanly: %v", err)
	}
}
