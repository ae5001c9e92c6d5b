// Package job assembles the cropwx batch jobs from their tasklet steps.
package job

import (
	"go.uber.org/fx"

	"github.com/tigerroll/cropwx/internal/aggregate"
	"github.com/tigerroll/cropwx/internal/dataset"
	"github.com/tigerroll/cropwx/internal/parser"
	"github.com/tigerroll/cropwx/internal/step/tasklet"
	"github.com/tigerroll/cropwx/pkg/batch/adapter/database"
	"github.com/tigerroll/cropwx/pkg/batch/adapter/storage"
	"github.com/tigerroll/cropwx/pkg/batch/component/tasklet/generic"
	"github.com/tigerroll/cropwx/pkg/batch/component/tasklet/migration"
	port "github.com/tigerroll/cropwx/pkg/batch/core/application/port"
	batchjob "github.com/tigerroll/cropwx/pkg/batch/core/job"
	metrics "github.com/tigerroll/cropwx/pkg/batch/core/metrics"
	steptasklet "github.com/tigerroll/cropwx/pkg/batch/engine/step/tasklet"
)

// Job names.
const (
	IngestJobName    = "ingestJob"
	RecomputeJobName = "recomputeJob"
	ExportJobName    = "exportJob"
)

// Step names.
const (
	StepEnsureSchema      = "ensure-schema"
	StepIngestWeather     = "ingest-weather"
	StepIngestYield       = "ingest-yield"
	StepBuildWeatherStats = "build-weather-stats"
	StepRecomputeStats    = "recompute-weather-stats"
	StepExportStats       = "export-weather-stats"
)

// IngestOptions selects the input of an ingest run.
type IngestOptions struct {
	WeatherDir string
	YieldDir   string
	Parse      parser.Options
	// SkipStats leaves the summary table untouched.
	SkipStats bool
}

// FactoryParams are the dependencies of the job Factory.
type FactoryParams struct {
	fx.In
	DBRef           string `name:"databaseRef"`
	Ensurer         migration.SchemaEnsurer
	Loader          tasklet.Loader
	Builder         tasklet.StatsBuilder
	DBResolver      database.DBConnectionResolver
	StorageResolver storage.StorageConnectionResolver `optional:"true"`
	JobListeners    []port.JobExecutionListener       `group:"job_listeners"`
	StepListeners   []port.StepExecutionListener      `group:"step_listeners"`
	Tracer          metrics.Tracer                    `optional:"true"`
}

// Factory builds the jobs of the CLI.
type Factory struct {
	p FactoryParams
}

// NewFactory creates a new Factory instance.
func NewFactory(p FactoryParams) *Factory {
	if p.Tracer == nil {
		p.Tracer = metrics.NewNoOpTracer()
	}
	return &Factory{p: p}
}

func (f *Factory) step(name string, t port.Tasklet, promoted ...string) port.Step {
	return steptasklet.NewTaskletStep(name, t,
		steptasklet.WithListeners(f.p.StepListeners...),
		steptasklet.WithTracer(f.p.Tracer),
		steptasklet.WithPromotedKeys(promoted...),
	)
}

func (f *Factory) job(name string, steps ...port.Step) *batchjob.SimpleJob {
	return batchjob.NewSimpleJob(name, steps, f.p.JobListeners, f.p.Tracer)
}

func ingestKeys(datasetName string) []string {
	keys := make([]string, 0, 4)
	for _, field := range []string{"files", "parsed", "duplicates", "inserted"} {
		keys = append(keys, tasklet.IngestKey(datasetName, field))
	}
	return keys
}

// Ingest returns the job loading both input directories and extending the summary table.
func (f *Factory) Ingest(opts IngestOptions) *batchjob.SimpleJob {
	weather, yield := dataset.Weather(), dataset.Yield()
	steps := []port.Step{
		f.step(StepEnsureSchema, migration.NewMigrationTasklet(f.p.Ensurer, f.p.DBRef)),
		f.step(StepIngestWeather, tasklet.NewIngestTasklet(weather, opts.WeatherDir, opts.Parse, f.p.Loader), ingestKeys(weather.Name)...),
		f.step(StepIngestYield, tasklet.NewIngestTasklet(yield, opts.YieldDir, opts.Parse, f.p.Loader), ingestKeys(yield.Name)...),
	}
	if !opts.SkipStats {
		steps = append(steps, f.step(StepBuildWeatherStats, tasklet.NewBuildStatsTasklet(f.p.Builder), tasklet.ContextKeyStatsWritten))
	}
	return f.job(IngestJobName, steps...)
}

// Recompute returns the job rewriting the summaries in scope.
func (f *Factory) Recompute(scope aggregate.Scope) *batchjob.SimpleJob {
	return f.job(RecomputeJobName,
		f.step(StepEnsureSchema, migration.NewMigrationTasklet(f.p.Ensurer, f.p.DBRef)),
		f.step(StepRecomputeStats, tasklet.NewRecomputeTasklet(f.p.Builder, scope), tasklet.ContextKeyStatsWritten),
	)
}

// Export returns the job writing the summary table to object storage.
func (f *Factory) Export(opts tasklet.ExportOptions) *batchjob.SimpleJob {
	if opts.DBRef == "" {
		opts.DBRef = f.p.DBRef
	}
	return f.job(ExportJobName,
		f.step(StepExportStats, tasklet.NewStatsExportTasklet(opts, f.p.DBResolver, f.p.StorageResolver),
			generic.ContextKeyExportedRows, generic.ContextKeyExportedObjects),
	)
}
