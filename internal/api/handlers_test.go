package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/cropwx/internal/api"
	"github.com/tigerroll/cropwx/internal/domain/entity"
	"github.com/tigerroll/cropwx/internal/query"
	"github.com/tigerroll/cropwx/internal/schema"
	"github.com/tigerroll/cropwx/pkg/batch/component/tasklet/migration"
	"github.com/tigerroll/cropwx/pkg/batch/test"
)

type healthFunc func(ctx context.Context) error

func (f healthFunc) Check(ctx context.Context) error { return f(ctx) }

func newRouter(t *testing.T, health api.HealthChecker) http.Handler {
	t.Helper()
	ctx := context.Background()
	conn := test.NewSQLiteConnection(t, "default")
	resolver := test.NewSingleConnectionResolver(conn)
	require.NoError(t, migration.NewSchemaEnsurer(resolver, schema.FS()).EnsureSchema(ctx, "default"))

	readings := []entity.WeatherRecord{
		{StationID: "USC00110072", Date: entity.NewDate(1985, 1, 1), MaxTemp: -22, MinTemp: -128, Precipitation: 94},
		{StationID: "USC00110072", Date: entity.NewDate(1985, 1, 2), MaxTemp: -122, MinTemp: -217, Precipitation: 0},
	}
	_, err := conn.ExecuteUpdate(ctx, &readings, "CREATE", "wx_data", nil)
	require.NoError(t, err)
	avg := -7.2
	stats := []entity.WeatherStats{{StationID: "USC00110072", Year: 1985, AvgMaxTemp: &avg}}
	_, err = conn.ExecuteUpdate(ctx, &stats, "CREATE", "wx_stats", nil)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "cropwx_test_total"}))

	svc := query.NewService(resolver, "default", 10, 100)
	return api.NewRouter(api.NewHandlers(svc, health), reg)
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestWeather_Envelope(t *testing.T) {
	h := newRouter(t, nil)
	rec := get(t, h, "/api/weather?date=1985-01-02&station_id=USC00110072")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"payload":{"count":1,"offset":0,"results":[
		{"station_id":"USC00110072","date":"1985-01-02","max_temp":-122,"min_temp":-217,"precipitation":0}
	]}}`, rec.Body.String())
}

func TestWeatherStats_NullFields(t *testing.T) {
	h := newRouter(t, nil)
	rec := get(t, h, "/api/weather/stats?year=1985")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"payload":{"count":1,"offset":0,"results":[
		{"station_id":"USC00110072","year":1985,"avg_max_temp":-7.2,"avg_min_temp":null,"total_precipitation":null}
	]}}`, rec.Body.String())
}

func TestYield_EmptyResultsIsArray(t *testing.T) {
	h := newRouter(t, nil)
	rec := get(t, h, "/api/yield?offset=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"payload":{"count":0,"offset":5,"results":[]}}`, rec.Body.String())
}

func TestValidationIsBadRequest(t *testing.T) {
	h := newRouter(t, nil)
	for _, target := range []string{"/api/yield?year=abc", "/api/weather?date=1985-13-01", "/api/weather?limit=101", "/api/weather?offset=-2"} {
		rec := get(t, h, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.NotEmpty(t, body["error"])
	}
}

func TestHealthzAndMetrics(t *testing.T) {
	h := newRouter(t, healthFunc(func(context.Context) error { return nil }))
	assert.Equal(t, http.StatusOK, get(t, h, "/healthz").Code)

	rec := get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cropwx_test_total")

	down := newRouter(t, healthFunc(func(context.Context) error { return errors.New("down") }))
	assert.Equal(t, http.StatusServiceUnavailable, get(t, down, "/healthz").Code)
}

func TestUnknownRouteAndMethod(t *testing.T) {
	h := newRouter(t, nil)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/api/nope").Code)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/weather", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestWrap_RecoversPanics(t *testing.T) {
	h := api.Wrap(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rec := get(t, h, "/")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
