package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/tigerroll/cropwx/pkg/batch/adapter/database"
	"github.com/tigerroll/cropwx/pkg/batch/core/config"
	"github.com/tigerroll/cropwx/pkg/batch/support/util/logger"
)

// DBHealth pings the named datasource.
type DBHealth struct {
	resolver database.DBConnectionResolver
	dbRef    string
}

// NewDBHealth creates a new DBHealth instance.
func NewDBHealth(resolver database.DBConnectionResolver, dbRef string) *DBHealth {
	return &DBHealth{resolver: resolver, dbRef: dbRef}
}

// Check implements HealthChecker.
func (d *DBHealth) Check(ctx context.Context) error {
	conn, err := d.resolver.ResolveDBConnection(ctx, d.dbRef)
	if err != nil {
		return err
	}
	return conn.RefreshConnection(ctx)
}

// NewServer builds the HTTP server of cfg around handler.
func NewServer(cfg *config.APIConfig, handler http.Handler) *http.Server {
	timeout := time.Duration(cfg.ReadTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &http.Server{
		Addr:              cfg.Address,
		Handler:           handler,
		ReadHeaderTimeout: timeout,
		ReadTimeout:       timeout,
		WriteTimeout:      2 * timeout,
	}
}

// ServerParams are the dependencies of the HTTP server.
type ServerParams struct {
	fx.In
	Lifecycle fx.Lifecycle
	Cfg       *config.Config
	APIConfig *config.APIConfig
	Resolver  database.DBConnectionResolver
	Gatherer  prometheus.Gatherer `optional:"true"`
	Handlers  *Handlers
}

func newHealth(resolver database.DBConnectionResolver, cfg *config.Config) HealthChecker {
	return NewDBHealth(resolver, cfg.Cropwx.Infrastructure.DatabaseRef)
}

// startServer binds the listener on start so an address conflict fails the app, then serves in the background.
func startServer(p ServerParams) *http.Server {
	srv := NewServer(p.APIConfig, Wrap(NewRouter(p.Handlers, p.Gatherer)))
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", srv.Addr, err)
			}
			logger.Infof("HTTP API listening on %s.", ln.Addr())
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Errorf("HTTP server stopped: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Infof("Shutting down HTTP API...")
			return srv.Shutdown(ctx)
		},
	})
	return srv
}

// Module provides the handlers and starts the HTTP server with the application.
var Module = fx.Options(
	fx.Provide(newHealth),
	fx.Provide(NewHandlers),
	fx.Provide(startServer),
	fx.Invoke(func(*http.Server) {}),
)
