package app_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/cropwx/internal/aggregate"
	"github.com/tigerroll/cropwx/internal/app"
	"github.com/tigerroll/cropwx/internal/job"
	"github.com/tigerroll/cropwx/internal/step/tasklet"
	port "github.com/tigerroll/cropwx/pkg/batch/core/application/port"
	config "github.com/tigerroll/cropwx/pkg/batch/core/config"
	model "github.com/tigerroll/cropwx/pkg/batch/core/domain/model"
	"github.com/tigerroll/cropwx/pkg/batch/core/support/incrementer"
)

func newConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.NewConfig()
	cfg.Cropwx.Metrics.Backend = "none"
	cfg.Cropwx.Datasources = map[string]interface{}{
		"default": map[string]interface{}{"type": "sqlite", "database": filepath.Join(dir, "cropwx.db")},
	}
	cfg.Cropwx.Storage = map[string]interface{}{
		"local": map[string]interface{}{"type": "local", "base_dir": filepath.Join(dir, "exports")},
	}
	return cfg
}

func writeInput(t *testing.T, name, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	return dir
}

func TestRunJob_IngestRecomputeExport(t *testing.T) {
	cfg := newConfig(t)
	ctx := context.Background()
	opts := job.IngestOptions{
		WeatherDir: writeInput(t, "USC00110072.txt", "19850101\t-22\t-128\t94\n19860101\t-122\t-217\t0\n"),
		YieldDir:   writeInput(t, "US_corn_grain_yield.txt", "1985\t225447\n"),
	}

	je, err := app.RunJob(ctx, cfg, func(f *job.Factory) port.Job { return f.Ingest(opts) }, model.NewJobParameters())
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusCompleted, je.Status)
	assert.Contains(t, je.Parameters, incrementer.DefaultTimestampKey)
	written, _ := je.ExecutionContext.GetInt64(tasklet.ContextKeyStatsWritten)
	assert.Equal(t, int64(2), written)

	je, err = app.RunJob(ctx, cfg, func(f *job.Factory) port.Job {
		return f.Recompute(aggregate.Scope{Year: 1986})
	}, nil)
	require.NoError(t, err)
	written, _ = je.ExecutionContext.GetInt64(tasklet.ContextKeyStatsWritten)
	assert.Equal(t, int64(1), written)

	je, err = app.RunJob(ctx, cfg, func(f *job.Factory) port.Job {
		return f.Export(tasklet.ExportOptions{StorageRef: "local", OutputBaseDir: "stats"})
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, model.ExitStatusCompleted, je.StepExecutions[0].ExitStatus)
	matches, err := filepath.Glob(filepath.Join(filepath.Dir(cfg.Cropwx.Datasources["default"].(map[string]interface{})["database"].(string)), "exports", "stats", "year=*", "*.parquet"))
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestRunJob_MissingDatasourceFails(t *testing.T) {
	cfg := newConfig(t)
	cfg.Cropwx.Infrastructure.DatabaseRef = "missing"

	je, err := app.RunJob(context.Background(), cfg, func(f *job.Factory) port.Job {
		return f.Ingest(job.IngestOptions{WeatherDir: t.TempDir(), YieldDir: t.TempDir()})
	}, nil)
	require.Error(t, err)
	require.NotNil(t, je)
	assert.Equal(t, model.BatchStatusFailed, je.Status)
}

func TestLoadConfig_AppliesOverrides(t *testing.T) {
	cfg, err := app.LoadConfig("", config.EmbeddedConfig("cropwx:\n  ingest:\n    weather_dir: from_yaml\n"),
		func(c *config.Config) { c.Cropwx.Ingest.YieldDir = "from_flag" })
	require.NoError(t, err)
	assert.Equal(t, "from_yaml", cfg.Cropwx.Ingest.WeatherDir)
	assert.Equal(t, "from_flag", cfg.Cropwx.Ingest.YieldDir)
}
