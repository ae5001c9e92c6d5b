package config

// Package config provides structures and utilities for managing application configuration.

// EmbeddedConfig holds the content of the configuration file, typically passed from main.go.
type EmbeddedConfig []byte

// LogLevel defines a logging level name.
type LogLevel string

const (
	LogLevelDebug  LogLevel = "DEBUG"
	LogLevelInfo   LogLevel = "INFO"
	LogLevelWarn   LogLevel = "WARN"
	LogLevelError  LogLevel = "ERROR"
	LogLevelFatal  LogLevel = "FATAL"
	LogLevelSilent LogLevel = "SILENT"
)

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the application logging level (e.g., "INFO", "DEBUG").
	Level string `yaml:"level"`
	// Format is "console" or "json".
	Format string `yaml:"format"`
	// SQLLevel is the ORM logging level ("SILENT", "ERROR", "WARN", "INFO").
	SQLLevel string `yaml:"sql_level"`
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	// Logging is the logging configuration.
	Logging LoggingConfig `yaml:"logging"`
}

// InfrastructureConfig holds logical references to adapter configurations.
type InfrastructureConfig struct {
	// DatabaseRef names the datasource holding the weather and yield tables.
	DatabaseRef string `yaml:"database_ref"`
}

// IngestConfig controls the ingestion pipeline.
type IngestConfig struct {
	WeatherDir string `yaml:"weather_dir"`
	YieldDir   string `yaml:"yield_dir"`
	// FilePattern selects input files inside each directory.
	FilePattern string `yaml:"file_pattern"`
	// BatchSize is the number of rows per staging insert statement.
	BatchSize int `yaml:"batch_size"`
	// ParseWorkers bounds the number of files parsed concurrently.
	ParseWorkers int `yaml:"parse_workers"`
	// StagingMode is "copy" (COPY protocol, PostgreSQL only) or "insert".
	StagingMode string `yaml:"staging_mode"`
}

// APIConfig controls the HTTP query service.
type APIConfig struct {
	Address            string `yaml:"address"`
	DefaultLimit       int    `yaml:"default_limit"`
	MaxLimit           int    `yaml:"max_limit"`
	ReadTimeoutSeconds int    `yaml:"read_timeout_seconds"`
}

// ExportConfig controls the Parquet export of weather statistics.
type ExportConfig struct {
	// StorageRef names the storage adapter configuration to upload through.
	StorageRef    string `yaml:"storage_ref"`
	Bucket        string `yaml:"bucket"`
	OutputBaseDir string `yaml:"output_base_dir"`
	Compression   string `yaml:"compression"`
	PageSize      int    `yaml:"page_size"`
}

// MetricsConfig selects and configures the metrics backend.
type MetricsConfig struct {
	// Backend is "prometheus", "otlp" or "none".
	Backend               string `yaml:"backend"`
	PushgatewayURL        string `yaml:"pushgateway_url"`
	OTLPEndpoint          string `yaml:"otlp_endpoint"`
	OTLPProtocol          string `yaml:"otlp_protocol"`
	ExportIntervalSeconds int    `yaml:"export_interval_seconds"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	Protocol    string  `yaml:"protocol"`
	ServiceName string  `yaml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// CropwxConfig holds all configuration under the "cropwx" top-level key.
type CropwxConfig struct {
	System         SystemConfig         `yaml:"system"`
	Infrastructure InfrastructureConfig `yaml:"infrastructure"`
	Ingest         IngestConfig         `yaml:"ingest"`
	API            APIConfig            `yaml:"api"`
	Export         ExportConfig         `yaml:"export"`
	Metrics        MetricsConfig        `yaml:"metrics"`
	Tracing        TracingConfig        `yaml:"tracing"`
	// Datasources holds raw database adapter configurations keyed by name.
	// Each entry is decoded into the adapter's own config type by its provider.
	Datasources map[string]interface{} `yaml:"datasources"`
	// Storage holds raw storage adapter configurations keyed by name.
	Storage map[string]interface{} `yaml:"storage"`
}

// Config is the root structure for the entire application configuration.
type Config struct {
	Cropwx CropwxConfig `yaml:"cropwx"`
	// EmbeddedConfig holds the raw configuration this instance was loaded from.
	EmbeddedConfig EmbeddedConfig `yaml:"-"`
}

// NewConfig returns a new instance of Config with default values.
func NewConfig() *Config {
	cfg := &Config{
		Cropwx: CropwxConfig{
			System: SystemConfig{
				Logging: LoggingConfig{Level: "INFO", Format: "console", SQLLevel: "SILENT"},
			},
			Infrastructure: InfrastructureConfig{DatabaseRef: "default"},
			Ingest: IngestConfig{
				WeatherDir:   "wx_data",
				YieldDir:     "yld_data",
				FilePattern:  "*.txt",
				BatchSize:    1000,
				ParseWorkers: 4,
				StagingMode:  "copy",
			},
			API: APIConfig{
				Address:            ":8080",
				DefaultLimit:       10,
				MaxLimit:           1000,
				ReadTimeoutSeconds: 15,
			},
			Export: ExportConfig{
				StorageRef:    "local",
				OutputBaseDir: "weather_stats",
				Compression:   "SNAPPY",
				PageSize:      5000,
			},
			Metrics: MetricsConfig{
				Backend:               "prometheus",
				OTLPProtocol:          "http",
				ExportIntervalSeconds: 30,
			},
			Tracing: TracingConfig{
				Protocol:    "http",
				ServiceName: "cropwx",
				SampleRatio: 1.0,
			},
		},
	}
	cfg.Cropwx.Datasources = map[string]interface{}{}
	cfg.Cropwx.Storage = map[string]interface{}{}
	return cfg
}
