package storage

import "time"

// Config holds database storage configuration
type Config struct {
	// Type selects the backing engine: "postgres" or "sqlite"
	Type string

	PostgresURL string
	SQLitePath  string

	MaxConns    int
	MinConns    int
	Timeout     time.Duration
	MaxLifetime time.Duration
	MaxIdleTime time.Duration
}

// DefaultConfig returns the default storage configuration
func DefaultConfig() Config {
	return Config{
		Type:        "sqlite",
		SQLitePath:  "catalog.db",
		MaxConns:    25,
		MinConns:    5,
		Timeout:     10 * time.Second,
		MaxLifetime: 30 * time.Minute,
		MaxIdleTime: 5 * time.Minute,
	}
}

// DriverName returns the database/sql driver name for the configured type
func (c Config) DriverName() string {
	if c.Type == "postgres" {
		return "postgres"
	}
	return "sqlite3"
}

// DSN returns the data source name for the configured type
func (c Config) DSN() string {
	if c.Type == "postgres" {
		return c.PostgresURL
	}
	// Foreign keys are off by default in SQLite and the schema relies
	// on ON DELETE behavior.
	return c.SQLitePath + "?_foreign_keys=on"
}
