package aggregate_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/cropwx/internal/aggregate"
	"github.com/tigerroll/cropwx/internal/domain/entity"
	"github.com/tigerroll/cropwx/internal/schema"
	"github.com/tigerroll/cropwx/pkg/batch/adapter/database"
	gormadapter "github.com/tigerroll/cropwx/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/cropwx/pkg/batch/component/tasklet/migration"
	"github.com/tigerroll/cropwx/pkg/batch/test"
)

func newBuilder(t *testing.T) (*aggregate.Builder, database.DBConnection) {
	t.Helper()
	conn := test.NewSQLiteConnection(t, "default")
	resolver := test.NewSingleConnectionResolver(conn)
	require.NoError(t, migration.NewSchemaEnsurer(resolver, schema.FS()).EnsureSchema(context.Background(), "default"))
	return aggregate.NewBuilder(resolver, gormadapter.NewGormTransactionManagerFactory(resolver), "default", 2), conn
}

func insertReadings(t *testing.T, conn database.DBConnection, recs ...entity.WeatherRecord) {
	t.Helper()
	_, err := conn.ExecuteUpdate(context.Background(), &recs, "CREATE", "wx_data", nil)
	require.NoError(t, err)
}

func storedStats(t *testing.T, conn database.DBConnection) []entity.WeatherStats {
	t.Helper()
	var out []entity.WeatherStats
	require.NoError(t, conn.ExecuteQueryAdvanced(context.Background(), &out, "wx_stats", nil, "station_id, year", 0, 0))
	return out
}

func TestBuild_AppendOnly(t *testing.T) {
	b, conn := newBuilder(t)
	ctx := context.Background()
	insertReadings(t, conn,
		reading("A", 1985, 1, 1, 100, -50, 10),
		reading("A", 1985, 1, 2, entity.Sentinel, -70, 20),
		reading("A", 1985, 1, 3, 200, -90, entity.Sentinel),
		reading("B", 1985, 1, 1, 10, 10, 10),
		reading("B", 1986, 1, 1, 10, 10, 10),
	)

	n, err := b.Build(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	stats := storedStats(t, conn)
	require.Len(t, stats, 3)
	require.NotNil(t, stats[0].AvgMaxTemp)
	assert.InDelta(t, 15.0, *stats[0].AvgMaxTemp, 1e-9)

	// New readings for an existing group do not change its summary.
	insertReadings(t, conn, reading("A", 1985, 1, 4, 900, 900, 900))
	n, err = b.Build(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
	assert.InDelta(t, 15.0, *storedStats(t, conn)[0].AvgMaxTemp, 1e-9)
}

func TestRecompute_Scoped(t *testing.T) {
	b, conn := newBuilder(t)
	ctx := context.Background()
	insertReadings(t, conn,
		reading("A", 1985, 1, 1, 100, 0, 0),
		reading("A", 1986, 1, 1, 100, 0, 0),
		reading("B", 1985, 1, 1, 100, 0, 0),
	)
	_, err := b.Build(ctx)
	require.NoError(t, err)

	insertReadings(t, conn,
		reading("A", 1985, 1, 2, 300, 0, 0),
		reading("B", 1985, 1, 2, 300, 0, 0),
	)
	n, err := b.Recompute(ctx, aggregate.Scope{StationID: "A", Year: 1985})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	stats := storedStats(t, conn)
	require.Len(t, stats, 3)
	assert.InDelta(t, 20.0, *stats[0].AvgMaxTemp, 1e-9) // A 1985 recomputed
	assert.InDelta(t, 10.0, *stats[1].AvgMaxTemp, 1e-9) // A 1986 untouched
	assert.InDelta(t, 10.0, *stats[2].AvgMaxTemp, 1e-9) // B 1985 untouched

	n, err = b.Recompute(ctx, aggregate.Scope{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.InDelta(t, 20.0, *storedStats(t, conn)[2].AvgMaxTemp, 1e-9)
}

func TestScope_String(t *testing.T) {
	assert.Equal(t, "all", aggregate.Scope{}.String())
	assert.True(t, aggregate.Scope{}.IsAll())
	assert.Equal(t, `station="A" year=0`, aggregate.Scope{StationID: "A"}.String())
}
