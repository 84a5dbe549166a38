// Package domain defines the access-control domain models: validated tokens,
// principals, scope sets, and authorization decisions.
//
// Authorization is scope-driven, not role-driven. A validated token carries the
// scopes granted to the caller; policy rules decide whether those scopes cover
// a given method and path.
package domain

import (
	"sort"
	"time"
)

// ValidatedToken is the result of introspecting a bearer token with the
// authorization server. It is created fresh on each validation call and is
// immutable once constructed. The raw token value is kept only for the
// lifetime of the request and must never be logged or echoed.
type ValidatedToken struct {
	Value     string    // Raw bearer token value (never log)
	UserID    string    // Subject user id (empty for client-only tokens)
	Username  string    // Subject username (empty for client-only tokens)
	ClientID  string    // OAuth client the token was issued to
	Scopes    ScopeSet  // Scope names granted to the token
	ExpiresAt time.Time // Expiration instant
}

// IsClientOnly reports whether the token carries no subject user.
func (t *ValidatedToken) IsClientOnly() bool {
	return t.UserID == ""
}

// IsExpired reports whether the token is expired at the given instant.
// An expired token must never yield an Allow decision.
func (t *ValidatedToken) IsExpired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !t.ExpiresAt.After(now)
}

// TokenMetadata is the read-only view of a token returned by the
// token-introspection endpoint. It carries no subject identity, only what a
// resource server needs to display about the token itself.
type TokenMetadata struct {
	Scopes    ScopeSet  `json:"scopes"`
	ExpiresAt time.Time `json:"expires_at"`
	TokenType string    `json:"token_type"`
}

// ScopeSet is a set of scope names attached to a principal for the current
// request. Order is irrelevant; membership is what matters. It is used
// read-only by the policy evaluator.
type ScopeSet map[string]struct{}

// NewScopeSet builds a ScopeSet from the given scope names.
func NewScopeSet(names ...string) ScopeSet {
	set := make(ScopeSet, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		set[name] = struct{}{}
	}
	return set
}

// Has reports whether the set contains the given scope name.
func (s ScopeSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Names returns the scope names in sorted order, for logging and responses.
func (s ScopeSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
