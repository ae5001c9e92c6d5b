package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tigerroll/cropwx/internal/aggregate"
	"github.com/tigerroll/cropwx/internal/app"
	"github.com/tigerroll/cropwx/internal/job"
	"github.com/tigerroll/cropwx/internal/parser"
	"github.com/tigerroll/cropwx/internal/step/tasklet"
	port "github.com/tigerroll/cropwx/pkg/batch/core/application/port"
	config "github.com/tigerroll/cropwx/pkg/batch/core/config"
	model "github.com/tigerroll/cropwx/pkg/batch/core/domain/model"
	"github.com/tigerroll/cropwx/pkg/batch/support/util/logger"
)

func newIngestCommand(root *rootOptions) *cobra.Command {
	var (
		weatherDir, yieldDir string
		skipStats            bool
	)
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load the weather and yield files and extend the weather statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig(func(c *config.Config) {
				if weatherDir != "" {
					c.Cropwx.Ingest.WeatherDir = weatherDir
				}
				if yieldDir != "" {
					c.Cropwx.Ingest.YieldDir = yieldDir
				}
			})
			if err != nil {
				return err
			}
			in := cfg.Cropwx.Ingest
			opts := job.IngestOptions{
				WeatherDir: in.WeatherDir,
				YieldDir:   in.YieldDir,
				Parse:      parser.Options{Pattern: in.FilePattern, Workers: in.ParseWorkers},
				SkipStats:  skipStats,
			}
			params := model.NewJobParameters()
			params.Put("weather_dir", opts.WeatherDir)
			params.Put("yield_dir", opts.YieldDir)
			params.Put("skip_stats", skipStats)
			return runJob(cmd, cfg, func(f *job.Factory) port.Job { return f.Ingest(opts) }, params)
		},
	}
	cmd.Flags().StringVar(&weatherDir, "weather-dir", "", "Directory of weather station files")
	cmd.Flags().StringVar(&yieldDir, "yield-dir", "", "Directory of crop yield files")
	cmd.Flags().BoolVar(&skipStats, "skip-stats", false, "Do not build weather statistics after loading")
	return cmd
}

func newRecomputeCommand(root *rootOptions) *cobra.Command {
	var scope aggregate.Scope
	cmd := &cobra.Command{
		Use:   "recompute",
		Short: "Rebuild weather statistics from the stored readings",
		Long: "Deletes the weather statistics matching --station and --year and computes them again.\n" +
			"Without filters every summary row is rebuilt.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if scope.Year < 0 {
				return fmt.Errorf("--year must be positive, got %d", scope.Year)
			}
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			params := model.NewJobParameters()
			params.Put("scope", scope.String())
			return runJob(cmd, cfg, func(f *job.Factory) port.Job { return f.Recompute(scope) }, params)
		},
	}
	cmd.Flags().StringVar(&scope.StationID, "station", "", "Only recompute this station")
	cmd.Flags().IntVar(&scope.Year, "year", 0, "Only recompute this year")
	return cmd
}

func newExportCommand(root *rootOptions) *cobra.Command {
	var storageRef, dir, compression string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the weather statistics to Parquet files partitioned by year",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig(func(c *config.Config) {
				if storageRef != "" {
					c.Cropwx.Export.StorageRef = storageRef
				}
				if dir != "" {
					c.Cropwx.Export.OutputBaseDir = dir
				}
				if compression != "" {
					c.Cropwx.Export.Compression = compression
				}
			})
			if err != nil {
				return err
			}
			ex := cfg.Cropwx.Export
			opts := tasklet.ExportOptions{
				StorageRef:    ex.StorageRef,
				Bucket:        ex.Bucket,
				OutputBaseDir: ex.OutputBaseDir,
				Compression:   ex.Compression,
				PageSize:      ex.PageSize,
			}
			params := model.NewJobParameters()
			params.Put("storage", opts.StorageRef)
			params.Put("dir", opts.OutputBaseDir)
			return runJob(cmd, cfg, func(f *job.Factory) port.Job { return f.Export(opts) }, params)
		},
	}
	cmd.Flags().StringVar(&storageRef, "storage", "", "Storage connection to upload through")
	cmd.Flags().StringVar(&dir, "dir", "", "Object prefix of the exported files")
	cmd.Flags().StringVar(&compression, "compression", "", "SNAPPY, GZIP or NONE")
	return cmd
}

func runJob(cmd *cobra.Command, cfg *config.Config, build app.JobBuilder, params model.JobParameters) error {
	je, err := app.RunJob(cmd.Context(), cfg, build, params)
	if je != nil {
		log := logger.With("job", je.JobName, "execution", je.ID)
		for _, se := range je.StepExecutions {
			log.Infof("%-24s %-9s read=%d filtered=%d written=%d (%s)",
				se.StepName, se.ExitStatus, se.ReadCount, se.FilterCount, se.WriteCount, se.Duration())
		}
	}
	return err
}
