package storage

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/fx"

	storageConfig "github.com/tigerroll/cropwx/pkg/batch/adapter/storage/config"
	coreAdapter "github.com/tigerroll/cropwx/pkg/batch/core/adapter"
	coreConfig "github.com/tigerroll/cropwx/pkg/batch/core/config"
	"github.com/tigerroll/cropwx/pkg/batch/support/util/logger"
)

// ConnectionResolver dispatches a connection name to the provider of its configured type.
type ConnectionResolver struct {
	providers map[string]StorageProvider
	cfg       *coreConfig.Config
}

// ResolverParams are the dependencies of NewConnectionResolver.
type ResolverParams struct {
	fx.In
	Providers []StorageProvider `group:"storage_providers"`
	Cfg       *coreConfig.Config
}

// NewConnectionResolver indexes the registered providers by type.
func NewConnectionResolver(p ResolverParams) *ConnectionResolver {
	providers := make(map[string]StorageProvider, len(p.Providers))
	for _, provider := range p.Providers {
		providers[provider.Type()] = provider
	}
	return &ConnectionResolver{providers: providers, cfg: p.Cfg}
}

// ResolveConnection resolves a generic resource connection by name.
func (r *ConnectionResolver) ResolveConnection(ctx context.Context, name string) (coreAdapter.ResourceConnection, error) {
	return r.ResolveStorageConnection(ctx, name)
}

// ResolveStorageConnection returns the connection configured under name.
func (r *ConnectionResolver) ResolveStorageConnection(ctx context.Context, name string) (StorageConnection, error) {
	sc, err := storageConfig.Lookup(r.cfg, name)
	if err != nil {
		return nil, err
	}
	provider, ok := r.providers[sc.Type]
	if !ok {
		return nil, fmt.Errorf("no storage provider found for type '%s' (connection '%s')", sc.Type, name)
	}
	conn, err := provider.GetConnection(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get storage connection '%s' from provider '%s': %w", name, sc.Type, err)
	}
	return conn, nil
}

// CloseAll closes the connections of every provider.
func (r *ConnectionResolver) CloseAll() error {
	var result error
	for _, provider := range r.providers {
		if err := provider.CloseAll(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	logger.Debugf("All storage connections closed.")
	return result
}

// Module provides the storage resolver and closes every connection on stop.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewConnectionResolver,
		fx.As(fx.Self()),
		fx.As(new(StorageConnectionResolver)),
	)),
	fx.Invoke(func(lc fx.Lifecycle, r *ConnectionResolver) {
		lc.Append(fx.Hook{OnStop: func(context.Context) error { return r.CloseAll() }})
	}),
)
