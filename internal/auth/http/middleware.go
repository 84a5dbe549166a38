// Package http provides HTTP middleware and utilities for authentication.
package http

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"

	authDomain "github.com/allisson/scimgate/internal/auth/domain"
	"github.com/allisson/scimgate/internal/auth/policy"
	apperrors "github.com/allisson/scimgate/internal/errors"
	"github.com/allisson/scimgate/internal/httputil"
)

// TokenValidator validates a bearer token with the authorization server.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (*authDomain.ValidatedToken, error)
}

// Decider resolves a matched policy rule to an authorization decision.
type Decider interface {
	Decide(
		principal authDomain.Principal,
		scopes authDomain.ScopeSet,
		rule *policy.Rule,
		facts policy.Facts,
	) authDomain.Decision
}

// AuthenticationMiddleware provides authentication via Bearer token in the Authorization header.
//
// The middleware:
// 1. Extracts the Bearer token from the Authorization header (case-insensitive)
// 2. Validates the token with the authorization server via validator.Validate()
// 3. Builds the principal and scope set from the validation result
// 4. Stores principal, scopes and validated token in the request context
// 5. Allows downstream handlers to access them via GetPrincipal(), GetScopes(), GetValidatedToken()
//
// Authorization header format: "Bearer <token>" (case-insensitive "bearer")
//
// Error handling:
//   - Missing Authorization header → 401 Unauthorized
//   - Malformed Authorization header → 401 Unauthorized
//   - Invalid/expired/revoked token → 401 Unauthorized
//   - Authorization server unreachable → 503 Service Unavailable
func AuthenticationMiddleware(validator TokenValidator, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.Debug("authentication failed: missing authorization header")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		// Parse Bearer token (case-insensitive). The header value is never
		// logged past this point.
		const bearerPrefix = "bearer "
		if len(authHeader) < len(bearerPrefix) ||
			!strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
			logger.Debug("authentication failed: malformed authorization header")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		plainToken := authHeader[len(bearerPrefix):]
		if plainToken == "" {
			logger.Debug("authentication failed: empty bearer token")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		validated, err := validator.Validate(c.Request.Context(), plainToken)
		if err != nil {
			logger.Debug("authentication failed",
				slog.String("error", err.Error()))
			httputil.HandleErrorGin(c, err, logger)
			c.Abort()
			return
		}

		principal, scopes := authDomain.BuildPrincipal(validated)

		ctx := WithPrincipal(c.Request.Context(), principal)
		ctx = WithScopes(ctx, scopes)
		ctx = WithValidatedToken(ctx, validated)
		c.Request = c.Request.WithContext(ctx)

		logger.Debug("authentication successful",
			slog.String("client_id", principal.AuthClientID()),
			slog.Any("scopes", scopes.Names()))

		c.Next()
	}
}

// AuthorizationMiddleware evaluates the policy rule table for authenticated requests.
//
// This middleware MUST be used after AuthenticationMiddleware, as it requires an
// authenticated principal in the request context. For each request it:
// 1. Matches the request method and path against the rule table (first match wins)
// 2. Pre-resolves the owner of the targeted resource via the OwnerResolver
// 3. Evaluates the matched rule's expression through the Decider
// 4. Allows the request to proceed, or responds with the mapped status
//
// Error handling:
//   - No principal in context → 401 Unauthorized (AuthenticationMiddleware not run)
//   - Expression evaluates false → 403 Forbidden
//   - No rule matched (misconfigured table) → 403 Forbidden, logged loudly
//   - Expired token at evaluation time → 401 Unauthorized
func AuthorizationMiddleware(
	table *policy.Table,
	resolver policy.OwnerResolver,
	decider Decider,
	logger *slog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c.Request.Context())
		if !ok || principal == nil {
			logger.Error("authorization failed: no authenticated principal in context")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		scopes, _ := GetScopes(c.Request.Context())

		method := c.Request.Method
		path := c.Request.URL.Path

		rule, _ := table.Match(method, path)

		facts := policy.Facts{Method: method}
		if validated, ok := GetValidatedToken(c.Request.Context()); ok {
			facts.TokenExpiresAt = validated.ExpiresAt
		}

		// Ownership is resolved only when a matched rule can use it; a failed
		// lookup is recorded as a fact and fails closed during evaluation.
		if rule != nil {
			owner, err := resolver.ResolveOwner(c.Request.Context(), principal, path)
			facts.ResourceOwnerID = owner
			facts.OwnerLookupErr = err
		}

		decision := decider.Decide(principal, scopes, rule, facts)
		if !decision.Allowed() {
			logger.Debug("authorization denied",
				slog.String("client_id", principal.AuthClientID()),
				slog.String("method", method),
				slog.String("path", path),
				slog.String("reason", decision.Reason))

			err := decision.Err
			if err == nil {
				err = apperrors.ErrForbidden
			}
			httputil.HandleErrorGin(c, err, logger)
			c.Abort()
			return
		}

		logger.Debug("authorization successful",
			slog.String("client_id", principal.AuthClientID()),
			slog.String("method", method),
			slog.String("path", path),
			slog.String("rule", rule.Name))

		c.Next()
	}
}
