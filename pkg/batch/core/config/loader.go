package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tigerroll/cropwx/pkg/batch/support/util/exception"
	"github.com/tigerroll/cropwx/pkg/batch/support/util/logger"
)

// Package config provides utilities for loading and managing application configuration
// from various sources, including YAML files and environment variables.

const moduleName = "config"

// EnvPrefix is prepended to every environment variable read by LoadConfig.
const EnvPrefix = "CROPWX_"

// LoadConfig builds the configuration in four layers:
// defaults from NewConfig, the embedded YAML (after ${VAR} expansion),
// an optional .env file, and finally CROPWX_* environment variables.
//
// Parameters:
//
//	envFilePath: The path to the .env file. Empty means ".env" in the working directory.
//	embeddedConfig: The embedded configuration bytes.
func LoadConfig(envFilePath string, embeddedConfig EmbeddedConfig) (*Config, error) {
	return loadConfig(envFilePath, embeddedConfig, NewOsEnvironmentExpander())
}

func loadConfig(envFilePath string, embeddedConfig EmbeddedConfig, expander EnvironmentExpander) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Warnf(".env file (%s) not found or could not be loaded: %v", envFilePath, err)
		}
	} else {
		if err := godotenv.Load(); err != nil {
			logger.Debugf(".env file not found or could not be loaded: %v", err)
		}
	}

	cfg := NewConfig()

	expanded, err := expander.Expand(embeddedConfig)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to expand environment placeholders in config", err)
	}

	var yamlConfig Config
	if err := yaml.Unmarshal(expanded, &yamlConfig); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to unmarshal embedded config", err)
	}
	mergeConfig(cfg, &yamlConfig)

	if err := loadStructFromEnv(reflect.ValueOf(&cfg.Cropwx).Elem(), EnvPrefix); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to load config from environment variables", err)
	}
	cfg.EmbeddedConfig = embeddedConfig

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	c := &cfg.Cropwx
	if c.API.DefaultLimit < 0 || c.API.MaxLimit <= 0 {
		return exception.NewBatchErrorf(moduleName, "api limits must be positive (default_limit=%d, max_limit=%d)", c.API.DefaultLimit, c.API.MaxLimit)
	}
	if c.API.DefaultLimit > c.API.MaxLimit {
		return exception.NewBatchErrorf(moduleName, "api.default_limit (%d) exceeds api.max_limit (%d)", c.API.DefaultLimit, c.API.MaxLimit)
	}
	switch strings.ToLower(c.Ingest.StagingMode) {
	case "copy", "insert":
	default:
		return exception.NewBatchErrorf(moduleName, "unknown ingest.staging_mode %q", c.Ingest.StagingMode)
	}
	switch strings.ToLower(c.Metrics.Backend) {
	case "prometheus", "otlp", "none":
	default:
		return exception.NewBatchErrorf(moduleName, "unknown metrics.backend %q", c.Metrics.Backend)
	}
	return nil
}

// mergeConfig copies every non-zero value of source over dest.
func mergeConfig(dest, source *Config) {
	mergeStruct(reflect.ValueOf(&dest.Cropwx).Elem(), reflect.ValueOf(&source.Cropwx).Elem())
}

func mergeStruct(dest, source reflect.Value) {
	for i := 0; i < dest.NumField(); i++ {
		d, s := dest.Field(i), source.Field(i)
		switch s.Kind() {
		case reflect.Struct:
			mergeStruct(d, s)
		case reflect.Map:
			if s.IsNil() {
				continue
			}
			if d.IsNil() {
				d.Set(reflect.MakeMap(d.Type()))
			}
			iter := s.MapRange()
			for iter.Next() {
				d.SetMapIndex(iter.Key(), iter.Value())
			}
		default:
			if !s.IsZero() {
				d.Set(s)
			}
		}
	}
}

// loadStructFromEnv recursively loads configuration values into a struct from environment variables.
// It uses the "yaml" tag to determine the environment variable name.
func loadStructFromEnv(val reflect.Value, prefix string) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		yamlTag := fieldType.Tag.Get("yaml")
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		envVarName := strings.ToUpper(prefix + yamlTag)

		switch field.Kind() {
		case reflect.Struct:
			if err := loadStructFromEnv(field, envVarName+"_"); err != nil {
				return err
			}
			continue
		case reflect.Map:
			if err := loadAdapterMapFromEnv(field, envVarName+"_"); err != nil {
				return err
			}
			continue
		}

		envValue, exists := os.LookupEnv(envVarName)
		if !exists {
			continue
		}
		if err := setField(field, envValue); err != nil {
			return fmt.Errorf("failed to set field '%s' from env var '%s': %w", fieldType.Name, envVarName, err)
		}
	}
	return nil
}

// loadAdapterMapFromEnv overrides entries of a raw adapter map.
//
// Example: CROPWX_DATASOURCES_DEFAULT_HOST=db sets Datasources["default"]["host"] = "db".
// The first segment after the prefix is the entry name; the rest is the lower-cased key.
func loadAdapterMapFromEnv(mapField reflect.Value, prefix string) error {
	if mapField.Type().Key().Kind() != reflect.String || mapField.Type().Elem().Kind() != reflect.Interface {
		return nil
	}
	if mapField.IsNil() {
		mapField.Set(reflect.MakeMap(mapField.Type()))
	}
	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, prefix) {
			continue
		}
		parts := strings.SplitN(strings.TrimPrefix(env, prefix), "=", 2)
		if len(parts) != 2 {
			continue
		}
		keyAndField := strings.SplitN(parts[0], "_", 2)
		if len(keyAndField) != 2 || keyAndField[0] == "" || keyAndField[1] == "" {
			continue
		}
		name := strings.ToLower(keyAndField[0])
		key := strings.ToLower(keyAndField[1])

		entry := map[string]interface{}{}
		if existing := mapField.MapIndex(reflect.ValueOf(name)); existing.IsValid() {
			if m, ok := existing.Interface().(map[string]interface{}); ok {
				entry = m
			}
		}
		entry[key] = parts[1]
		mapField.SetMapIndex(reflect.ValueOf(name), reflect.ValueOf(entry))
	}
	return nil
}

// setField sets the value of a reflect.Value field based on its kind.
// It handles string, int, float, and bool types.
func setField(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(intValue)
	case reflect.Float64, reflect.Float32:
		floatValue, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(floatValue)
	case reflect.Bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolValue)
	}
	return nil
}
