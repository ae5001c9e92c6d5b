// Package adapter defines the resource abstractions shared by the database and storage adapters.
package adapter

import (
	"context"
)

// ResourceConnection is a named, closable connection to an external resource.
type ResourceConnection interface {
	// Close releases the connection.
	Close() error
	// Type returns the resource type (e.g., "postgres", "sqlite", "local", "gcs").
	Type() string
	// Name returns the configuration name the connection was created from.
	Name() string
}

// ResourceConnectionResolver resolves connections by configuration name.
type ResourceConnectionResolver interface {
	ResolveConnection(ctx context.Context, name string) (ResourceConnection, error)
}
