// Package config holds the per-connection storage configuration.
package config

import (
	"fmt"

	coreConfig "github.com/tigerroll/cropwx/pkg/batch/core/config"
)

// StorageConfig holds configuration for a single storage connection.
type StorageConfig struct {
	Type            string `yaml:"type"`             // "local" or "gcs".
	BucketName      string `yaml:"bucket_name"`      // Default bucket when an operation names none.
	CredentialsFile string `yaml:"credentials_file"` // Service account key for gcs. Empty uses application default credentials.
	BaseDir         string `yaml:"base_dir"`         // Root directory of the local adapter.
}

// Lookup decodes the storage entry configured under name.
func Lookup(cfg *coreConfig.Config, name string) (StorageConfig, error) {
	var sc StorageConfig
	raw, ok := cfg.Cropwx.Storage[name]
	if !ok {
		return sc, fmt.Errorf("storage configuration '%s' not found under cropwx.storage", name)
	}
	if err := coreConfig.DecodeAdapterConfig(raw, &sc); err != nil {
		return sc, fmt.Errorf("failed to decode storage config for '%s': %w", name, err)
	}
	return sc, nil
}
