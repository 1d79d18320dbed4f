// Package config loads server configuration from environment variables.
// Every field carries its variable name and default in struct tags; Load
// applies them and validates the whole result at once so startup fails with
// the full list of problems.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Workspace WorkspaceConfig
	Rate      RateLimitConfig
	Security  SecurityConfig
	Logging   LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds the optional PostgreSQL connection used to import
// query results as tables. Import is disabled when URL is empty.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string.
	// Supports both DATABASE_URL and DB_URL.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"0"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// ImportTimeout bounds a single import query (default: 2m)
	ImportTimeout time.Duration `env:"DB_IMPORT_TIMEOUT" default:"2m"`
}

// Enabled reports whether a database is configured.
func (c *DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

// WorkspaceConfig bounds the in-memory tables.
type WorkspaceConfig struct {
	// MaxTables is the number of named tables held at once (default: 100)
	MaxTables int `env:"WORKSPACE_MAX_TABLES" default:"100"`

	// MaxRows caps rows per table on load and import (default: 1000000)
	MaxRows int `env:"WORKSPACE_MAX_ROWS" default:"1000000"`

	// MaxUploadBytes caps a CSV/TSV or JSON body (default: 32MB)
	MaxUploadBytes int64 `env:"WORKSPACE_MAX_UPLOAD_BYTES" default:"33554432"`

	// HistorySize is the number of mutation entries kept per table (default: 50)
	HistorySize int `env:"WORKSPACE_HISTORY_SIZE" default:"50"`

	// IdleTTL evicts tables untouched for this long; 0 disables (default: 24h)
	IdleTTL time.Duration `env:"WORKSPACE_IDLE_TTL" default:"24h"`

	// EvictInterval is how often idle tables are checked (default: 10m)
	EvictInterval time.Duration `env:"WORKSPACE_EVICT_INTERVAL" default:"10m"`

	// MaxConcurrentLoads limits parallel loads and imports (default: 4)
	MaxConcurrentLoads int `env:"WORKSPACE_MAX_CONCURRENT_LOADS" default:"4"`

	// LoadWaitTime is how long a load waits for a slot (default: 10s)
	LoadWaitTime time.Duration `env:"WORKSPACE_LOAD_WAIT_TIME" default:"10s"`
}

// RateLimitConfig holds per-IP rate limiting settings.
type RateLimitConfig struct {
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the sustained rate per IP (default: 120)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"120"`

	// Burst is the number of requests allowed at once (default: 20)
	Burst int `env:"RATE_LIMIT_BURST" default:"20"`

	// LoadLimit is requests per minute for load and import endpoints (default: 20)
	LoadLimit int `env:"RATE_LIMIT_LOAD" default:"20"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of proxy CIDRs whose
	// X-Forwarded-For / X-Real-IP headers are believed.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey enables X-API-Key authentication on /api routes.
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys.
	APIKeys []string `env:"API_KEYS"`

	// EnableCSP adds a Content-Security-Policy header (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
