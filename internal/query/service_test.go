package query_test

import (
	"context"
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/cropwx/internal/domain/entity"
	"github.com/tigerroll/cropwx/internal/query"
	"github.com/tigerroll/cropwx/internal/schema"
	"github.com/tigerroll/cropwx/pkg/batch/component/tasklet/migration"
	"github.com/tigerroll/cropwx/pkg/batch/support/util/exception"
	"github.com/tigerroll/cropwx/pkg/batch/test"
)

func newService(t *testing.T) *query.Service {
	t.Helper()
	ctx := context.Background()
	conn := test.NewSQLiteConnection(t, "default")
	resolver := test.NewSingleConnectionResolver(conn)
	require.NoError(t, migration.NewSchemaEnsurer(resolver, schema.FS()).EnsureSchema(ctx, "default"))

	var readings []entity.WeatherRecord
	for _, station := range []string{"B", "A"} {
		for day := 1; day <= 4; day++ {
			readings = append(readings, entity.WeatherRecord{StationID: station, Date: entity.NewDate(1985, 1, day), MaxTemp: day})
		}
	}
	_, err := conn.ExecuteUpdate(ctx, &readings, "CREATE", "wx_data", nil)
	require.NoError(t, err)

	yields := []entity.YieldRecord{{Year: 1986, TotalYield: 2}, {Year: 1985, TotalYield: 1}}
	_, err = conn.ExecuteUpdate(ctx, &yields, "CREATE", "yld_data", nil)
	require.NoError(t, err)

	return query.NewService(resolver, "default", 3, 5)
}

func TestFind_DefaultsAndOrdering(t *testing.T) {
	s := newService(t)
	page, err := query.Find(context.Background(), s, query.Weather, url.Values{})
	require.NoError(t, err)
	assert.Equal(t, int64(8), page.Count)
	assert.Equal(t, 0, page.Offset)
	require.Len(t, page.Results, 3)
	assert.Equal(t, "A", page.Results[0].StationID)
	assert.Equal(t, "1985-01-01", page.Results[0].Date.String())
	assert.Equal(t, "1985-01-03", page.Results[2].Date.String())
}

func TestFind_PaginationConsistency(t *testing.T) {
	s := newService(t)
	for _, offset := range []int{0, 3, 7, 8, 20} {
		for _, limit := range []int{0, 1, 5} {
			v := url.Values{"offset": {fmt.Sprint(offset)}, "limit": {fmt.Sprint(limit)}}
			page, err := query.Find(context.Background(), s, query.Weather, v)
			require.NoError(t, err)
			want := min(limit, max(0, int(page.Count)-offset))
			assert.Len(t, page.Results, want, "offset=%d limit=%d", offset, limit)
			assert.NotNil(t, page.Results)
		}
	}
}

func TestFind_Filters(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	page, err := query.Find(ctx, s, query.Weather, url.Values{"date": {"1985-01-02"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Count)

	page, err = query.Find(ctx, s, query.Weather, url.Values{"date": {"1985-01-02"}, "station_id": {"B"}, "unknown": {"x"}})
	require.NoError(t, err)
	require.Equal(t, int64(1), page.Count)
	assert.Equal(t, 2, page.Results[0].MaxTemp)

	yields, err := query.Find(ctx, s, query.Yield, url.Values{"year": {"1986"}})
	require.NoError(t, err)
	require.Len(t, yields.Results, 1)
	assert.Equal(t, 2, yields.Results[0].TotalYield)

	stats, err := query.Find(ctx, s, query.WeatherStats, url.Values{"year": {"1985"}})
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Count)
	assert.Empty(t, stats.Results)
}

func TestFind_ValidationErrors(t *testing.T) {
	s := newService(t)
	cases := map[string]url.Values{
		"bad offset":   {"offset": {"-1"}},
		"bad limit":    {"limit": {"ten"}},
		"limit above":  {"limit": {"6"}},
		"bad date":     {"date": {"19850101"}},
		"bad year":     {"year": {"85a"}},
		"year too big": {"year": {"100000"}},
	}
	for name, v := range cases {
		t.Run(name, func(t *testing.T) {
			res := query.Weather
			if _, ok := v["year"]; ok {
				_, err := query.Find(context.Background(), s, query.Yield, v)
				assert.True(t, exception.IsValidationError(err))
				return
			}
			_, err := query.Find(context.Background(), s, res, v)
			assert.True(t, exception.IsValidationError(err))
		})
	}
}
