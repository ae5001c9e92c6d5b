package tasklet

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tigerroll/cropwx/internal/dataset"
	"github.com/tigerroll/cropwx/internal/domain/entity"
	"github.com/tigerroll/cropwx/pkg/batch/adapter/database"
	"github.com/tigerroll/cropwx/pkg/batch/adapter/storage"
	writer "github.com/tigerroll/cropwx/pkg/batch/component/step/writer"
	"github.com/tigerroll/cropwx/pkg/batch/component/tasklet/generic"
	"github.com/tigerroll/cropwx/pkg/batch/core/application/port"
	"github.com/tigerroll/cropwx/pkg/batch/core/domain/model"
	"github.com/tigerroll/cropwx/pkg/batch/support/util/exception"
)

// DefaultExportDir is the object prefix used when ExportOptions.OutputBaseDir is empty.
const DefaultExportDir = "weather_stats"

// ExportOptions configures the statistics export.
type ExportOptions struct {
	DBRef         string
	StorageRef    string
	Bucket        string
	OutputBaseDir string
	Compression   string
	PageSize      int
}

// StatsExportTasklet writes the summary table to Parquet files partitioned by year.
// The table name depends on the engine, so the underlying export tasklet is built
// once the connection is resolved.
type StatsExportTasklet struct {
	opts            ExportOptions
	dbResolver      database.DBConnectionResolver
	storageResolver storage.StorageConnectionResolver
	ec              model.ExecutionContext
}

// NewStatsExportTasklet creates a new StatsExportTasklet instance.
func NewStatsExportTasklet(opts ExportOptions, dbResolver database.DBConnectionResolver, storageResolver storage.StorageConnectionResolver) *StatsExportTasklet {
	if opts.OutputBaseDir == "" {
		opts.OutputBaseDir = DefaultExportDir
	}
	return &StatsExportTasklet{opts: opts, dbResolver: dbResolver, storageResolver: storageResolver, ec: model.NewExecutionContext()}
}

// StatsExportQuery returns the export query for the given database type.
func StatsExportQuery(dbType string) string {
	return fmt.Sprintf(
		"SELECT station_id, year, avg_max_temp, avg_min_temp, total_precipitation FROM %s ORDER BY year, station_id",
		dataset.WeatherStatsTable.Qualified(dbType == "postgres"))
}

// YearPartition is the Hive-style partition of an exported row.
func YearPartition(row entity.WeatherStatsExport) (string, error) {
	return fmt.Sprintf("year=%04d", row.Year), nil
}

func scanStats(rows *sql.Rows) (entity.WeatherStatsExport, error) {
	var (
		s                  entity.WeatherStats
		maxT, minT, precip sql.NullFloat64
	)
	if err := rows.Scan(&s.StationID, &s.Year, &maxT, &minT, &precip); err != nil {
		return entity.WeatherStatsExport{}, err
	}
	s.AvgMaxTemp = nullable(maxT)
	s.AvgMinTemp = nullable(minT)
	s.TotalPrecipitation = nullable(precip)
	return s.ToExport(), nil
}

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func (t *StatsExportTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error) {
	conn, err := t.dbResolver.ResolveDBConnection(ctx, t.opts.DBRef)
	if err != nil {
		return model.ExitStatusFailed, exception.NewConnectionError("export", fmt.Sprintf("failed to resolve database connection '%s'", t.opts.DBRef), err)
	}
	export, err := generic.NewGenericParquetExportTasklet[entity.WeatherStatsExport](
		generic.ParquetExportConfig{
			DbRef:    t.opts.DBRef,
			Query:    StatsExportQuery(conn.Type()),
			PageSize: t.opts.PageSize,
			Writer: writer.ParquetWriterConfig{
				StorageRef:      t.opts.StorageRef,
				Bucket:          t.opts.Bucket,
				OutputBaseDir:   t.opts.OutputBaseDir,
				CompressionType: t.opts.Compression,
				ReplaceExisting: true,
			},
		},
		t.dbResolver,
		t.storageResolver,
		&entity.WeatherStatsExport{},
		scanStats,
		YearPartition,
	)
	if err != nil {
		return model.ExitStatusFailed, err
	}
	if err := export.SetExecutionContext(ctx, t.ec); err != nil {
		return model.ExitStatusFailed, err
	}
	defer export.Close(ctx)
	return export.Execute(ctx, stepExecution)
}

func (t *StatsExportTasklet) Close(ctx context.Context) error { return nil }

func (t *StatsExportTasklet) SetExecutionContext(ctx context.Context, ec model.ExecutionContext) error {
	t.ec = ec
	return nil
}

func (t *StatsExportTasklet) GetExecutionContext(ctx context.Context) (model.ExecutionContext, error) {
	return t.ec, nil
}

var _ port.Tasklet = (*StatsExportTasklet)(nil)
