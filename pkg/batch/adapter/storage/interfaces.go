// Package storage defines the object storage abstraction used by exports.
// A "bucket" is a GCS bucket for the gcs adapter and a sub-directory of
// base_dir for the local adapter.
package storage

import (
	"context"
	"io"

	coreAdapter "github.com/tigerroll/cropwx/pkg/batch/core/adapter"
)

// StorageProviderGroup is the fx value group collecting StorageProviders.
const StorageProviderGroup = "storage_providers"

// StorageExecutor defines generic storage operations.
type StorageExecutor interface {
	// Upload writes data to bucket/objectName, replacing any existing object.
	Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error
	// Download opens bucket/objectName. The caller closes the returned reader.
	Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error)
	// ListObjects calls fn for each object name under prefix.
	ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error
	// DeleteObject removes bucket/objectName. Deleting a missing object is not an error.
	DeleteObject(ctx context.Context, bucket, objectName string) error
}

// StorageConnection is a named storage connection.
type StorageConnection interface {
	coreAdapter.ResourceConnection
	StorageExecutor
}

// StorageProvider creates and caches connections of one storage type.
type StorageProvider interface {
	// GetConnection returns the connection configured under name.
	GetConnection(ctx context.Context, name string) (StorageConnection, error)
	// CloseAll closes all connections managed by this provider.
	CloseAll() error
	// Type returns the storage type handled by this provider (e.g., "local", "gcs").
	Type() string
}

// StorageConnectionResolver resolves storage connections by configuration name.
type StorageConnectionResolver interface {
	coreAdapter.ResourceConnectionResolver
	ResolveStorageConnection(ctx context.Context, name string) (StorageConnection, error)
}
