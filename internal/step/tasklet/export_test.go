package tasklet_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/cropwx/internal/domain/entity"
	"github.com/tigerroll/cropwx/internal/step/tasklet"
	"github.com/tigerroll/cropwx/pkg/batch/adapter/storage"
	"github.com/tigerroll/cropwx/pkg/batch/adapter/storage/local"
	"github.com/tigerroll/cropwx/pkg/batch/component/tasklet/generic"
	"github.com/tigerroll/cropwx/pkg/batch/core/config"
	"github.com/tigerroll/cropwx/pkg/batch/core/domain/model"
	"github.com/tigerroll/cropwx/pkg/batch/test"
)

func newStorageResolver(baseDir string) *storage.ConnectionResolver {
	cfg := config.NewConfig()
	cfg.Cropwx.Storage = map[string]interface{}{
		"local": map[string]interface{}{"type": "local", "base_dir": baseDir},
	}
	return storage.NewConnectionResolver(storage.ResolverParams{
		Providers: []storage.StorageProvider{local.NewLocalProvider(cfg)},
		Cfg:       cfg,
	})
}

func ptr(f float64) *float64 { return &f }

func TestStatsExportQuery(t *testing.T) {
	assert.Contains(t, tasklet.StatsExportQuery("postgres"), "FROM wx_schema.wx_stats ")
	assert.Contains(t, tasklet.StatsExportQuery("sqlite"), "FROM wx_stats ")
}

func TestYearPartition(t *testing.T) {
	key, err := tasklet.YearPartition(entity.WeatherStatsExport{Year: 1985})
	require.NoError(t, err)
	assert.Equal(t, "year=1985", key)
}

func TestStatsExportTasklet_WritesOneFilePerYear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	stats := []entity.WeatherStats{
		{StationID: "A", Year: 1985, AvgMaxTemp: ptr(12.5), AvgMinTemp: ptr(1.5), TotalPrecipitation: ptr(80)},
		{StationID: "B", Year: 1985},
		{StationID: "A", Year: 1986, AvgMaxTemp: ptr(13), AvgMinTemp: ptr(2), TotalPrecipitation: ptr(75.25)},
	}
	_, err := f.conn.ExecuteUpdate(ctx, &stats, "CREATE", "wx_stats", nil)
	require.NoError(t, err)

	baseDir := t.TempDir()
	tl := tasklet.NewStatsExportTasklet(tasklet.ExportOptions{
		DBRef:         "default",
		StorageRef:    "local",
		OutputBaseDir: "weather_stats",
		Compression:   "GZIP",
	}, f.resolver, newStorageResolver(baseDir))

	se := test.NewStepExecution("export-weather-stats")
	status, err := tl.Execute(ctx, se)
	require.NoError(t, err)
	assert.Equal(t, model.ExitStatusCompleted, status)
	assert.Equal(t, 3, se.WriteCount)

	for _, year := range []string{"year=1985", "year=1986"} {
		entries, err := os.ReadDir(filepath.Join(baseDir, "weather_stats", year))
		require.NoError(t, err)
		assert.Len(t, entries, 1, year)
	}

	ec, err := tl.GetExecutionContext(ctx)
	require.NoError(t, err)
	rows, _ := ec.GetInt64(generic.ContextKeyExportedRows)
	assert.Equal(t, int64(3), rows)
}

func TestStatsExportTasklet_EmptyTableIsNoOp(t *testing.T) {
	f := newFixture(t)
	tl := tasklet.NewStatsExportTasklet(tasklet.ExportOptions{DBRef: "default", StorageRef: "local"}, f.resolver, newStorageResolver(t.TempDir()))
	status, err := tl.Execute(context.Background(), test.NewStepExecution("export-weather-stats"))
	require.NoError(t, err)
	assert.Equal(t, model.ExitStatusNoOp, status)
}
