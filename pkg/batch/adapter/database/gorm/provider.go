package gorm

import (
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/tigerroll/cropwx/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/cropwx/pkg/batch/adapter/database/config"
	config "github.com/tigerroll/cropwx/pkg/batch/core/config"
	"github.com/tigerroll/cropwx/pkg/batch/support/util/logger"

	"gorm.io/gorm"
)

// DialectorFactory generates a gorm.Dialector from a dbconfig.DatabaseConfig.
type DialectorFactory func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error)

var (
	dialectorRegistry = make(map[string]DialectorFactory)
	dialectorMutex    sync.RWMutex
)

// RegisterDialector registers a DialectorFactory for the given database type.
// Dialect packages call it from init().
func RegisterDialector(dbType string, factory DialectorFactory) {
	dialectorMutex.Lock()
	defer dialectorMutex.Unlock()
	if _, exists := dialectorRegistry[dbType]; exists {
		logger.Warnf("Dialector for type '%s' already registered. Overwriting.", dbType)
	}
	dialectorRegistry[dbType] = factory
}

// GetDialectorFactory retrieves the DialectorFactory corresponding to the specified DB type.
func GetDialectorFactory(dbType string) (DialectorFactory, error) {
	dialectorMutex.RLock()
	defer dialectorMutex.RUnlock()
	factory, ok := dialectorRegistry[dbType]
	if !ok {
		return nil, fmt.Errorf("no dialector registered for database type: %s", dbType)
	}
	return factory, nil
}

// Open opens a gorm session for dbConfig and applies its pool settings.
func Open(dbConfig dbconfig.DatabaseConfig, sqlLogLevel string) (*gorm.DB, error) {
	dialectorFactory, err := GetDialectorFactory(dbConfig.Type)
	if err != nil {
		return nil, err
	}
	dialector, err := dialectorFactory(dbConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create dialector for %s: %w", dbConfig.Type, err)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 NewGormLogger(sqlLogLevel),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open GORM connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if dbConfig.Pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(dbConfig.Pool.MaxOpenConns)
	}
	if dbConfig.Pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(dbConfig.Pool.MaxIdleConns)
	}
	if dbConfig.Pool.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(dbConfig.Pool.ConnMaxLifetimeMinutes) * time.Minute)
	}
	return db, nil
}

// BaseProvider provides common functionality for DBProvider implementations.
type BaseProvider struct {
	cfg    *config.Config
	dbType string
	// connections managed by this provider (name -> DBConnection)
	connections map[string]database.DBConnection
	mu          sync.RWMutex
}

// NewBaseProvider creates a new BaseProvider.
func NewBaseProvider(cfg *config.Config, dbType string) *BaseProvider {
	return &BaseProvider{
		cfg:         cfg,
		dbType:      dbType,
		connections: make(map[string]database.DBConnection),
	}
}

// Type returns the database type.
func (p *BaseProvider) Type() string {
	return p.dbType
}

// GetConnection retrieves an existing connection or establishes a new one.
func (p *BaseProvider) GetConnection(name string) (database.DBConnection, error) {
	p.mu.RLock()
	conn, ok := p.connections[name]
	p.mu.RUnlock()
	if ok {
		return conn, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Double check (DCL)
	if conn, ok = p.connections[name]; ok {
		return conn, nil
	}
	return p.createAndStoreConnection(name)
}

// createAndStoreConnection establishes a new connection and stores it in the map.
func (p *BaseProvider) createAndStoreConnection(name string) (database.DBConnection, error) {
	dbConfig, err := DatasourceConfig(p.cfg, name)
	if err != nil {
		return nil, err
	}
	if dbConfig.Type != p.dbType {
		return nil, fmt.Errorf("provider type mismatch: expected '%s', got '%s' for connection '%s'", p.dbType, dbConfig.Type, name)
	}

	gormDB, err := Open(dbConfig, p.cfg.Cropwx.System.Logging.SQLLevel)
	if err != nil {
		return nil, err
	}
	conn, err := NewGormDBAdapter(gormDB, dbConfig, name)
	if err != nil {
		return nil, err
	}
	p.connections[name] = conn
	logger.Infof("Established new DB connection: %s (%s)", name, p.dbType)
	return conn, nil
}

// ForceReconnect attempts to close and reopen a connection if it exists.
func (p *BaseProvider) ForceReconnect(name string) (database.DBConnection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if existingConn, ok := p.connections[name]; ok {
		if err := existingConn.Close(); err != nil {
			logger.Warnf("Failed to close existing connection '%s' before reconnect: %v", name, err)
		}
		delete(p.connections, name)
	}

	conn, err := p.createAndStoreConnection(name)
	if err != nil {
		return nil, err
	}
	logger.Infof("Re-established DB connection: %s (%s)", name, p.dbType)
	return conn, nil
}

// CloseAll closes all connections managed by this provider.
func (p *BaseProvider) CloseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var result *multierror.Error
	for name, conn := range p.connections {
		if err := conn.Close(); err != nil {
			logger.Errorf("Failed to close connection '%s': %v", name, err)
			result = multierror.Append(result, fmt.Errorf("close %s: %w", name, err))
		}
		delete(p.connections, name)
	}
	return result.ErrorOrNil()
}

// DatasourceConfig decodes the named entry of cropwx.datasources.
func DatasourceConfig(cfg *config.Config, name string) (dbconfig.DatabaseConfig, error) {
	var dbConfig dbconfig.DatabaseConfig
	rawConfig, ok := cfg.Cropwx.Datasources[name]
	if !ok {
		return dbConfig, fmt.Errorf("database configuration '%s' not found under cropwx.datasources", name)
	}
	if err := config.DecodeAdapterConfig(rawConfig, &dbConfig); err != nil {
		return dbConfig, fmt.Errorf("failed to decode database config for '%s': %w", name, err)
	}
	return dbConfig, nil
}
