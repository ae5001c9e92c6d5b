// Package config provides core configuration structures and utilities.
// This module defines Fx providers that hand out sections of *Config,
// so components depend only on the part they read.
package config

import "go.uber.org/fx"

// NewLoggingConfigProvider extracts and provides *LoggingConfig from *Config.
func NewLoggingConfigProvider(cfg *Config) *LoggingConfig {
	return &cfg.Cropwx.System.Logging
}

func newIngestConfigProvider(cfg *Config) *IngestConfig   { return &cfg.Cropwx.Ingest }
func newAPIConfigProvider(cfg *Config) *APIConfig         { return &cfg.Cropwx.API }
func newExportConfigProvider(cfg *Config) *ExportConfig   { return &cfg.Cropwx.Export }
func newMetricsConfigProvider(cfg *Config) *MetricsConfig { return &cfg.Cropwx.Metrics }
func newTracingConfigProvider(cfg *Config) *TracingConfig { return &cfg.Cropwx.Tracing }

// Module provides configuration sections to Fx. *Config itself is supplied by the caller.
var Module = fx.Options(
	fx.Provide(NewLoggingConfigProvider),
	fx.Provide(newIngestConfigProvider),
	fx.Provide(newAPIConfigProvider),
	fx.Provide(newExportConfigProvider),
	fx.Provide(newMetricsConfigProvider),
	fx.Provide(newTracingConfigProvider),
	fx.Provide(func() EnvironmentExpander {
		return NewOsEnvironmentExpander()
	}),
)
