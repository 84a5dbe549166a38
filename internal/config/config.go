// Package config provides application configuration through environment variables.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/allisson/go-env"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// ServerHost is the host address the server will bind to.
	ServerHost string
	// ServerPort is the port number the server will listen on.
	ServerPort int

	// LogLevel is the logging level (e.g., "debug", "info", "warn", "error").
	LogLevel string

	// AuthServerURL is the base URL of the authorization server used for
	// token introspection and revocation.
	AuthServerURL string
	// AuthServerMaxConnections is the total size of the outbound connection pool.
	AuthServerMaxConnections int
	// AuthServerMaxConnectionsPerHost limits connections per upstream host.
	AuthServerMaxConnectionsPerHost int
	// AuthServerConnectTimeout is the TCP connect timeout for upstream calls.
	AuthServerConnectTimeout time.Duration
	// AuthServerReadTimeout is the end-to-end deadline for a single upstream call.
	AuthServerReadTimeout time.Duration

	// IntrospectionCacheTTL bounds how long a validation result may be reused.
	// Zero disables the cache; every request then pays one introspection
	// round trip. The effective TTL is always capped by the token's own
	// expiration, so the staleness window never exceeds this value.
	IntrospectionCacheTTL time.Duration

	// PolicyFile is the path to a JSON policy rule table. Empty means the
	// built-in default table is used.
	PolicyFile string
	// MethodScopes overrides the HTTP-method-to-scope convention as a
	// comma-separated list of METHOD=SCOPE pairs (e.g., "GET=READ,POST=WRITE").
	// Empty means each method maps to the scope of the same name.
	MethodScopes string

	// ResourceBackendURL is the base URL of the protected SCIM resource
	// backend that authorized requests are proxied to.
	ResourceBackendURL string

	// RateLimitEnabled indicates whether per-principal rate limiting is enabled.
	RateLimitEnabled bool
	// RateLimitRequestsPerSec is the number of requests allowed per second per principal.
	RateLimitRequestsPerSec float64
	// RateLimitBurst is the burst size for per-principal rate limiting.
	RateLimitBurst int

	// CORSEnabled indicates whether CORS is enabled.
	CORSEnabled bool
	// CORSAllowOrigins is a comma-separated list of allowed origins for CORS.
	CORSAllowOrigins string

	// MetricsEnabled indicates whether metrics collection is enabled.
	MetricsEnabled bool
	// MetricsNamespace is the namespace for the application metrics.
	MetricsNamespace string
	// MetricsPort is the port number for the metrics server.
	MetricsPort int

	// ShutdownTimeout bounds graceful shutdown of the HTTP servers.
	ShutdownTimeout time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() *Config {
	// Try to load .env file recursively
	loadDotEnv()

	return &Config{
		// Server configuration
		ServerHost: env.GetString("SERVER_HOST", "0.0.0.0"),
		ServerPort: env.GetInt("SERVER_PORT", 8080),

		// Logging
		LogLevel: env.GetString("LOG_LEVEL", "info"),

		// Authorization server connector
		AuthServerURL:                   env.GetString("AUTH_SERVER_URL", "http://localhost:8180"),
		AuthServerMaxConnections:        env.GetInt("AUTH_SERVER_MAX_CONNECTIONS", 40),
		AuthServerMaxConnectionsPerHost: env.GetInt("AUTH_SERVER_MAX_CONNECTIONS_PER_HOST", 40),
		AuthServerConnectTimeout:        env.GetDuration("AUTH_SERVER_CONNECT_TIMEOUT_MS", 5000, time.Millisecond),
		AuthServerReadTimeout:           env.GetDuration("AUTH_SERVER_READ_TIMEOUT_MS", 10000, time.Millisecond),

		// Introspection cache (disabled by default)
		IntrospectionCacheTTL: env.GetDuration("INTROSPECTION_CACHE_TTL_MS", 0, time.Millisecond),

		// Policy
		PolicyFile:   env.GetString("POLICY_FILE", ""),
		MethodScopes: env.GetString("METHOD_SCOPES", ""),

		// Resource backend
		ResourceBackendURL: env.GetString("RESOURCE_BACKEND_URL", "http://localhost:8280"),

		// Rate Limiting (per authenticated principal)
		RateLimitEnabled:        env.GetBool("RATE_LIMIT_ENABLED", false),
		RateLimitRequestsPerSec: env.GetFloat64("RATE_LIMIT_REQUESTS_PER_SEC", 50.0),
		RateLimitBurst:          env.GetInt("RATE_LIMIT_BURST", 100),

		// CORS
		CORSEnabled:      env.GetBool("CORS_ENABLED", false),
		CORSAllowOrigins: env.GetString("CORS_ALLOW_ORIGINS", ""),

		// Metrics
		MetricsEnabled:   env.GetBool("METRICS_ENABLED", true),
		MetricsNamespace: env.GetString("METRICS_NAMESPACE", "scimgate"),
		MetricsPort:      env.GetInt("METRICS_PORT", 8081),

		// Shutdown
		ShutdownTimeout: env.GetDuration("SHUTDOWN_TIMEOUT_SECONDS", 30, time.Second),
	}
}

// GetGinMode returns the appropriate Gin mode based on log level.
func (c *Config) GetGinMode() string {
	switch c.LogLevel {
	case "debug":
		return "debug"
	case "info", "warn", "error":
		return "release"
	default:
		return "release"
	}
}

// loadDotEnv searches for a .env file recursively from the current directory
// up to the root directory and loads it if found.
func loadDotEnv() {
	// Get current working directory
	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	// Search for .env file recursively up the directory tree
	dir := cwd
	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			// .env file found, load it
			_ = godotenv.Load(envPath)
			return
		}

		// Move to parent directory
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root directory
			break
		}
		dir = parent
	}
}
