package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	otelmetric "go.opentelemetry.io/otel/metric"

	authHTTP "github.com/allisson/scimgate/internal/auth/http"
	"github.com/allisson/scimgate/internal/auth/policy"
	"github.com/allisson/scimgate/internal/metrics"
	"github.com/allisson/scimgate/internal/scim"
)

// Server represents the front door HTTP server.
type Server struct {
	server *http.Server
	router *gin.Engine
	logger *slog.Logger
}

// RouterConfig carries the dependencies and toggles the router needs.
type RouterConfig struct {
	// Validator authenticates bearer tokens with the authorization server.
	Validator authHTTP.TokenValidator
	// Reader fetches fresh token metadata for the validation endpoint.
	Reader authHTTP.TokenReader
	// Revoker forwards token revocation to the authorization server.
	Revoker authHTTP.TokenRevoker
	// Table is the policy rule table evaluated for every protected request.
	Table *policy.Table
	// OwnerResolver pre-resolves resource ownership for policy evaluation.
	OwnerResolver policy.OwnerResolver
	// Evaluator turns matched rules into decisions.
	Evaluator authHTTP.Decider
	// ServiceProvider serves the SCIM service provider document.
	ServiceProvider *scim.ServiceProviderHandler
	// ProxyHandler forwards authorized requests to the resource backend.
	ProxyHandler gin.HandlerFunc

	// MeterProvider enables HTTP metrics when non-nil.
	MeterProvider    otelmetric.MeterProvider
	MetricsNamespace string

	RateLimitEnabled bool
	RateLimitRPS     float64
	RateLimitBurst   int

	CORSEnabled      bool
	CORSAllowOrigins string
}

// NewServer creates a new HTTP server. SetupRouter must be called before Start.
func NewServer(host string, port int, logger *slog.Logger) *Server {
	return &Server{
		logger: logger,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// SetupRouter builds the gin engine and the middleware pipeline.
//
// Route registration order matters: /healthz and /ServiceProviderConfigs
// are registered before the authentication chain is installed so probes and
// service discovery need no token, while every route registered after it
// (including the NoRoute proxy) passes through authentication, rate limiting
// and policy authorization.
func (s *Server) SetupRouter(cfg RouterConfig) {
	router := gin.New()

	// Base middleware for every route, probes included.
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	if cfg.MeterProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(cfg.MeterProvider, cfg.MetricsNamespace))
	}

	router.GET("/healthz", s.healthHandler)

	// The service provider document describes the server's capabilities and
	// is readable without credentials so clients can discover how to
	// authenticate in the first place.
	router.GET("/ServiceProviderConfigs", cfg.ServiceProvider.GetConfigHandler)

	// Everything below requires a validated token and a passing policy rule.
	router.Use(authHTTP.AuthenticationMiddleware(cfg.Validator, s.logger))
	if cfg.RateLimitEnabled {
		router.Use(authHTTP.RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst, s.logger))
	}
	router.Use(authHTTP.AuthorizationMiddleware(cfg.Table, cfg.OwnerResolver, cfg.Evaluator, s.logger))

	tokenHandler := authHTTP.NewTokenHandler(cfg.Reader, cfg.Revoker, s.logger)
	router.GET("/token/validation", tokenHandler.ValidateTokenHandler)
	router.POST("/token/revocation/:id", tokenHandler.RevokeTokensHandler)

	// Authorized SCIM traffic (/Users, /me, and anything the policy allows)
	// is forwarded to the resource backend.
	router.NoRoute(cfg.ProxyHandler)

	s.router = router
	s.server.Handler = router
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server.
func (s *Server) Start(ctx context.Context) error {
	if s.router == nil {
		return fmt.Errorf("router not configured: call SetupRouter first")
	}

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

// healthHandler reports process liveness. The front door holds no state, so
// live means healthy; reachability of the authorization server surfaces per
// request as 503 instead.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
