package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tigerroll/cropwx/pkg/batch/core/config"
	dbconfig "github.com/tigerroll/cropwx/pkg/batch/adapter/database/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYAML = `
cropwx:
  system:
    logging:
      level: DEBUG
  ingest:
    weather_dir: /data/wx
    batch_size: 250
  api:
    max_limit: 200
  datasources:
    default:
      type: postgres
      host: ${CROPWX_TEST_DB_HOST}
      port: 5432
      database: cropwx
      pool:
        max_open_conns: 8
`

func TestLoadConfig_DefaultsAndYAML(t *testing.T) {
	t.Setenv("CROPWX_TEST_DB_HOST", "db.internal")

	cfg, err := config.LoadConfig(filepath.Join(t.TempDir(), "missing.env"), config.EmbeddedConfig(testYAML))
	require.NoError(t, err)

	c := cfg.Cropwx
	assert.Equal(t, "DEBUG", c.System.Logging.Level)
	assert.Equal(t, "console", c.System.Logging.Format, "default kept when YAML is silent")
	assert.Equal(t, "/data/wx", c.Ingest.WeatherDir)
	assert.Equal(t, "yld_data", c.Ingest.YieldDir)
	assert.Equal(t, 250, c.Ingest.BatchSize)
	assert.Equal(t, 10, c.API.DefaultLimit)
	assert.Equal(t, 200, c.API.MaxLimit)
	assert.Equal(t, "default", c.Infrastructure.DatabaseRef)

	var ds dbconfig.DatabaseConfig
	require.NoError(t, config.DecodeAdapterConfig(c.Datasources["default"], &ds))
	assert.Equal(t, "postgres", ds.Type)
	assert.Equal(t, "db.internal", ds.Host)
	assert.Equal(t, 5432, ds.Port)
	assert.Equal(t, 8, ds.Pool.MaxOpenConns)
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("CROPWX_API_DEFAULT_LIMIT", "25")
	t.Setenv("CROPWX_INGEST_STAGING_MODE", "insert")
	t.Setenv("CROPWX_TRACING_ENABLED", "true")
	t.Setenv("CROPWX_DATASOURCES_DEFAULT_PORT", "6543")
	t.Setenv("CROPWX_DATASOURCES_REPLICA_TYPE", "sqlite")

	cfg, err := config.LoadConfig(filepath.Join(t.TempDir(), "missing.env"), config.EmbeddedConfig(testYAML))
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Cropwx.API.DefaultLimit)
	assert.Equal(t, "insert", cfg.Cropwx.Ingest.StagingMode)
	assert.True(t, cfg.Cropwx.Tracing.Enabled)

	var ds dbconfig.DatabaseConfig
	require.NoError(t, config.DecodeAdapterConfig(cfg.Cropwx.Datasources["default"], &ds))
	assert.Equal(t, 6543, ds.Port, "string from the environment decodes into int")
	assert.Equal(t, "cropwx", ds.Database)

	var replica dbconfig.DatabaseConfig
	require.NoError(t, config.DecodeAdapterConfig(cfg.Cropwx.Datasources["replica"], &replica))
	assert.Equal(t, "sqlite", replica.Type)
}

func TestLoadConfig_EnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("CROPWX_API_ADDRESS=:9999\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("CROPWX_API_ADDRESS") })

	cfg, err := config.LoadConfig(envFile, config.EmbeddedConfig(testYAML))
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Cropwx.API.Address)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"default above max", "cropwx:\n  api:\n    default_limit: 50\n    max_limit: 20\n"},
		{"unknown staging mode", "cropwx:\n  ingest:\n    staging_mode: bulk\n"},
		{"unknown metrics backend", "cropwx:\n  metrics:\n    backend: statsd\n"},
		{"malformed yaml", "cropwx: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.LoadConfig(filepath.Join(t.TempDir(), "missing.env"), config.EmbeddedConfig(tt.yaml))
			assert.Error(t, err)
		})
	}
}
