package loader_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/cropwx/internal/dataset"
	"github.com/tigerroll/cropwx/internal/domain/entity"
	"github.com/tigerroll/cropwx/internal/loader"
	"github.com/tigerroll/cropwx/internal/schema"
	"github.com/tigerroll/cropwx/pkg/batch/adapter/database"
	gormadapter "github.com/tigerroll/cropwx/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/cropwx/pkg/batch/component/tasklet/migration"
	metrics "github.com/tigerroll/cropwx/pkg/batch/core/metrics"
	"github.com/tigerroll/cropwx/pkg/batch/test"
)

func newSQLiteLoader(t *testing.T, batchSize int) (*loader.Loader, database.DBConnection) {
	t.Helper()
	conn := test.NewSQLiteConnection(t, "default")
	resolver := test.NewSingleConnectionResolver(conn)
	l := loader.NewLoader(
		resolver,
		gormadapter.NewGormTransactionManagerFactory(resolver),
		migration.NewSchemaEnsurer(resolver, schema.FS()),
		loader.Options{DBRef: "default", BatchSize: batchSize},
	)
	return l, conn
}

func weatherRows(recs ...entity.WeatherRecord) [][]interface{} {
	return dataset.Weather().Rows(recs)
}

func TestLoad_InsertsAndReportsDelta(t *testing.T) {
	l, conn := newSQLiteLoader(t, 2)
	ctx := context.Background()
	ds := dataset.Weather()

	res, err := l.Load(ctx, ds.Target, weatherRows(
		entity.WeatherRecord{StationID: "A", Date: entity.NewDate(1985, 1, 1), MaxTemp: 1},
		entity.WeatherRecord{StationID: "A", Date: entity.NewDate(1985, 1, 2), MaxTemp: 2},
		entity.WeatherRecord{StationID: "B", Date: entity.NewDate(1985, 1, 1), MaxTemp: 3},
	))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Staged)
	assert.Equal(t, int64(3), res.Inserted)
	assert.Equal(t, int64(0), res.Before)

	n, err := conn.Count(ctx, "wx_data", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestLoad_IsIdempotent(t *testing.T) {
	l, conn := newSQLiteLoader(t, 0)
	ctx := context.Background()
	ds := dataset.Yield()
	rows := ds.Rows([]entity.YieldRecord{{Year: 1985, TotalYield: 225447}, {Year: 1986, TotalYield: 208944}})

	first, err := l.Load(ctx, ds.Target, rows)
	require.NoError(t, err)
	second, err := l.Load(ctx, ds.Target, rows)
	require.NoError(t, err)

	assert.Equal(t, int64(2), first.Inserted)
	assert.Equal(t, int64(0), second.Inserted)
	n, err := conn.Count(ctx, "yld_data", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestLoad_ConflictSkipKeepsStoredValue(t *testing.T) {
	l, conn := newSQLiteLoader(t, 0)
	ctx := context.Background()
	ds := dataset.Weather()
	day := entity.NewDate(1990, 6, 1)

	_, err := l.Load(ctx, ds.Target, weatherRows(entity.WeatherRecord{StationID: "A", Date: day, MaxTemp: 250}))
	require.NoError(t, err)
	res, err := l.Load(ctx, ds.Target, weatherRows(
		entity.WeatherRecord{StationID: "A", Date: day, MaxTemp: 999},
		entity.WeatherRecord{StationID: "A", Date: entity.NewDate(1990, 6, 2), MaxTemp: 260},
	))
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Inserted)

	var stored []entity.WeatherRecord
	require.NoError(t, conn.ExecuteQueryAdvanced(ctx, &stored, "wx_data", map[string]interface{}{"station_id": "A", "date": day}, "", 0, 0))
	require.Len(t, stored, 1)
	assert.Equal(t, 250, stored[0].MaxTemp)
}

func TestLoad_EmptyInput(t *testing.T) {
	l, _ := newSQLiteLoader(t, 0)
	res, err := l.Load(context.Background(), dataset.Yield().Target, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Inserted)
}

type durationRecorder struct {
	metrics.NoOpMetricRecorder
	tags []map[string]string
}

func (r *durationRecorder) RecordDuration(ctx context.Context, name string, d time.Duration, tags map[string]string) {
	if name == "load" {
		r.tags = append(r.tags, tags)
	}
}

func TestLoad_RecordsMergeDuration(t *testing.T) {
	conn := test.NewSQLiteConnection(t, "default")
	resolver := test.NewSingleConnectionResolver(conn)
	rec := &durationRecorder{}
	l := loader.NewLoader(resolver, gormadapter.NewGormTransactionManagerFactory(resolver),
		migration.NewSchemaEnsurer(resolver, schema.FS()), loader.Options{DBRef: "default", Recorder: rec})

	_, err := l.Load(context.Background(), dataset.Yield().Target, dataset.Yield().Rows([]entity.YieldRecord{{Year: 1985, TotalYield: 1}}))
	require.NoError(t, err)
	assert.Equal(t, []map[string]string{{"target": "yield", "status": "ok"}}, rec.tags)
}
