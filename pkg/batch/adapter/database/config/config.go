package config

// PoolConfig holds database connection pool settings.
type PoolConfig struct {
	MaxOpenConns           int `yaml:"max_open_conns"`
	MaxIdleConns           int `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int `yaml:"conn_max_lifetime_minutes"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Type     string     `yaml:"type"`     // Database type ("postgres", "mysql", "sqlite").
	Host     string     `yaml:"host"`     // Database host address.
	Port     int        `yaml:"port"`     // Database port number.
	Database string     `yaml:"database"` // Database name, or the file path for SQLite.
	User     string     `yaml:"user"`     // Database user.
	Password string     `yaml:"password"` // Database password.
	Sslmode  string     `yaml:"sslmode"`  // SSL mode for PostgreSQL.
	Pool     PoolConfig `yaml:"pool"`     // Connection pool settings.
}

// UsesSchemas reports whether tables live in named schemas for this database type.
// Only PostgreSQL separates wx_schema and yld_schema; other engines use bare table names.
func (c DatabaseConfig) UsesSchemas() bool {
	return c.Type == "postgres"
}
