package gorm

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"github.com/tigerroll/cropwx/pkg/batch/adapter/database"
	coreAdapter "github.com/tigerroll/cropwx/pkg/batch/core/adapter"
	config "github.com/tigerroll/cropwx/pkg/batch/core/config"
	"github.com/tigerroll/cropwx/pkg/batch/support/util/logger"
)

// GormDBConnectionResolver picks the DBProvider matching a datasource's type
// and verifies the returned pool with a ping.
type GormDBConnectionResolver struct {
	dbProviders map[string]database.DBProvider
	cfg         *config.Config
}

// GormDBConnectionResolverParams defines the dependencies for NewGormDBConnectionResolver.
type GormDBConnectionResolverParams struct {
	fx.In
	DBProviders []database.DBProvider `group:"db_providers"`
	Cfg         *config.Config
}

// NewGormDBConnectionResolver creates a resolver over every registered DBProvider.
func NewGormDBConnectionResolver(p GormDBConnectionResolverParams) *GormDBConnectionResolver {
	providerMap := make(map[string]database.DBProvider)
	for _, provider := range p.DBProviders {
		providerMap[provider.Type()] = provider
	}
	return &GormDBConnectionResolver{
		dbProviders: providerMap,
		cfg:         p.Cfg,
	}
}

// ResolveDBConnection implements database.DBConnectionResolver.
func (r *GormDBConnectionResolver) ResolveDBConnection(ctx context.Context, name string) (database.DBConnection, error) {
	dbConfig, err := DatasourceConfig(r.cfg, name)
	if err != nil {
		return nil, fmt.Errorf("DBConnectionResolver: %w", err)
	}

	provider, ok := r.dbProviders[dbConfig.Type]
	if !ok {
		return nil, fmt.Errorf("DBConnectionResolver: DBProvider for type '%s' not found for connection '%s'", dbConfig.Type, name)
	}

	conn, err := provider.GetConnection(name)
	if err != nil {
		return nil, fmt.Errorf("DBConnectionResolver: failed to get connection '%s': %w", name, err)
	}

	if pingErr := conn.RefreshConnection(ctx); pingErr != nil {
		logger.Warnf("DBConnectionResolver: Connection '%s' is invalid (%v). Attempting to reconnect.", name, pingErr)
		reconnectedConn, reconnectErr := provider.ForceReconnect(name)
		if reconnectErr != nil {
			return nil, fmt.Errorf("DBConnectionResolver: failed to reconnect connection '%s': %w", name, reconnectErr)
		}
		if err := reconnectedConn.RefreshConnection(ctx); err != nil {
			return nil, fmt.Errorf("DBConnectionResolver: connection '%s' unreachable after reconnect: %w", name, err)
		}
		logger.Infof("DBConnectionResolver: Successfully reconnected connection '%s'.", name)
		return reconnectedConn, nil
	}
	return conn, nil
}

// ResolveConnection implements coreAdapter.ResourceConnectionResolver.
func (r *GormDBConnectionResolver) ResolveConnection(ctx context.Context, name string) (coreAdapter.ResourceConnection, error) {
	return r.ResolveDBConnection(ctx, name)
}

// CloseAll closes the connections of every provider.
func (r *GormDBConnectionResolver) CloseAll() error {
	var firstErr error
	for _, p := range r.dbProviders {
		if err := p.CloseAll(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
