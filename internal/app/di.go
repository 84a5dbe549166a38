// Package app provides dependency injection container for assembling application components.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	authHTTP "github.com/allisson/scimgate/internal/auth/http"
	"github.com/allisson/scimgate/internal/auth/introspection"
	"github.com/allisson/scimgate/internal/auth/policy"
	"github.com/allisson/scimgate/internal/config"
	"github.com/allisson/scimgate/internal/http"
	"github.com/allisson/scimgate/internal/metrics"
	"github.com/allisson/scimgate/internal/scim"
)

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger *slog.Logger

	// Servers
	httpServer    *http.Server
	metricsServer *http.MetricsServer

	// Metrics
	metricsProvider *metrics.Provider
	accessMetrics   metrics.AccessMetrics

	// Access control
	introspectionClient *introspection.Client
	policyTable         *policy.Table
	methodScopes        policy.MethodScopes
	evaluator           *policy.Evaluator
	ownerResolver       policy.OwnerResolver

	// Initialization flags and mutex for thread-safety
	mu                      sync.Mutex
	loggerInit              sync.Once
	httpServerInit          sync.Once
	metricsServerInit       sync.Once
	metricsProviderInit     sync.Once
	accessMetricsInit       sync.Once
	introspectionClientInit sync.Once
	policyTableInit         sync.Once
	methodScopesInit        sync.Once
	evaluatorInit           sync.Once
	ownerResolverInit       sync.Once
	initErrors              map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// HTTPServer returns the front door HTTP server instance.
func (c *Container) HTTPServer() (*http.Server, error) {
	var err error
	c.httpServerInit.Do(func() {
		c.httpServer, err = c.initHTTPServer()
		if err != nil {
			c.initErrors["httpServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// MetricsProvider returns the metrics provider instance, or nil when metrics
// are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	var err error
	c.metricsProviderInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		c.metricsProvider, err = metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["metricsProvider"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// AccessMetrics returns the access-control metrics recorder. A no-op recorder
// is returned when metrics are disabled.
func (c *Container) AccessMetrics() (metrics.AccessMetrics, error) {
	var err error
	c.accessMetricsInit.Do(func() {
		var provider *metrics.Provider
		provider, err = c.MetricsProvider()
		if err != nil {
			c.initErrors["accessMetrics"] = err
			return
		}
		if provider == nil {
			c.accessMetrics = metrics.NewNoOpAccessMetrics()
			return
		}
		c.accessMetrics, err = metrics.NewAccessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["accessMetrics"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["accessMetrics"]; exists {
		return nil, storedErr
	}
	return c.accessMetrics, nil
}

// MetricsServer returns the metrics HTTP server instance, or nil when metrics
// are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	var err error
	c.metricsServerInit.Do(func() {
		var provider *metrics.Provider
		provider, err = c.MetricsProvider()
		if err != nil {
			c.initErrors["metricsServer"] = err
			return
		}
		if provider == nil {
			return
		}
		c.metricsServer = http.NewMetricsServer(
			c.config.ServerHost,
			c.config.MetricsPort,
			c.Logger(),
			provider,
		)
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	// Shutdown HTTP server if initialized
	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	// Shutdown metrics server if initialized
	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	// Shutdown metrics provider if initialized
	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	// Return combined errors if any occurred
	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initHTTPServer creates the HTTP server with all its dependencies.
func (c *Container) initHTTPServer() (*http.Server, error) {
	logger := c.Logger()

	introspectionClient, err := c.IntrospectionClient()
	if err != nil {
		return nil, fmt.Errorf("failed to get introspection client for http server: %w", err)
	}

	table, err := c.PolicyTable()
	if err != nil {
		return nil, fmt.Errorf("failed to get policy table for http server: %w", err)
	}

	evaluator, err := c.Evaluator()
	if err != nil {
		return nil, fmt.Errorf("failed to get evaluator for http server: %w", err)
	}

	proxyHandler, err := http.NewProxyHandler(c.config.ResourceBackendURL, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource backend proxy: %w", err)
	}

	accessMetrics, err := c.AccessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get access metrics for http server: %w", err)
	}

	routerConfig := http.RouterConfig{
		Validator:       authHTTP.NewValidatorWithMetrics(introspectionClient, accessMetrics),
		Reader:          introspectionClient,
		Revoker:         authHTTP.NewRevokerWithMetrics(introspectionClient, accessMetrics),
		Table:           table,
		OwnerResolver:   c.OwnerResolver(),
		Evaluator:       authHTTP.NewDeciderWithMetrics(evaluator, accessMetrics),
		ServiceProvider: scim.NewServiceProviderHandler(scim.DefaultServiceProviderConfig()),
		ProxyHandler:    proxyHandler,

		RateLimitEnabled: c.config.RateLimitEnabled,
		RateLimitRPS:     c.config.RateLimitRequestsPerSec,
		RateLimitBurst:   c.config.RateLimitBurst,

		CORSEnabled:      c.config.CORSEnabled,
		CORSAllowOrigins: c.config.CORSAllowOrigins,
	}

	metricsProvider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
	}
	if metricsProvider != nil {
		routerConfig.MeterProvider = metricsProvider.MeterProvider()
		routerConfig.MetricsNamespace = c.config.MetricsNamespace
	}

	server := http.NewServer(c.config.ServerHost, c.config.ServerPort, logger)
	server.SetupRouter(routerConfig)

	return server, nil
}
