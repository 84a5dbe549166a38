// Package http provides HTTP middleware and utilities for authentication.
package http

import (
	"context"

	authDomain "github.com/allisson/scimgate/internal/auth/domain"
)

// principalKey is a context key type for storing authenticated principals.
type principalKey struct{}

// scopesKey is a context key type for storing granted scope sets.
type scopesKey struct{}

// tokenKey is a context key type for storing the validated token.
type tokenKey struct{}

// WithPrincipal stores an authenticated principal in the context.
// This is typically called by the authentication middleware after successful token validation.
func WithPrincipal(ctx context.Context, principal authDomain.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, principal)
}

// GetPrincipal retrieves an authenticated principal from the context.
// Returns (principal, true) if present, or (nil, false) if no principal was set.
func GetPrincipal(ctx context.Context) (authDomain.Principal, bool) {
	principal, ok := ctx.Value(principalKey{}).(authDomain.Principal)
	return principal, ok
}

// WithScopes stores the granted scope set in the context.
func WithScopes(ctx context.Context, scopes authDomain.ScopeSet) context.Context {
	return context.WithValue(ctx, scopesKey{}, scopes)
}

// GetScopes retrieves the granted scope set from the context.
// Returns (scopes, true) if present, or (nil, false) if no scopes were set.
func GetScopes(ctx context.Context) (authDomain.ScopeSet, bool) {
	scopes, ok := ctx.Value(scopesKey{}).(authDomain.ScopeSet)
	return scopes, ok
}

// WithValidatedToken stores the validated token in the context. Handlers that
// forward the caller's credential upstream (token validation, revocation) read
// it from here; it must never be written to a response body or log line.
func WithValidatedToken(ctx context.Context, token *authDomain.ValidatedToken) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// GetValidatedToken retrieves the validated token from the context.
// Returns (token, true) if present, or (nil, false) if no token was set.
func GetValidatedToken(ctx context.Context) (*authDomain.ValidatedToken, bool) {
	token, ok := ctx.Value(tokenKey{}).(*authDomain.ValidatedToken)
	return token, ok
}
