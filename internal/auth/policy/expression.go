// Package policy implements the local authorization policy: an ordered,
// immutable rule table matched by method and path, a typed boolean expression
// tree per rule, and the evaluator that turns a matched rule into a decision.
//
// Expressions are a small typed tree, never interpreted strings; the set of
// available predicates is checked at compile time.
package policy

import (
	"fmt"
	"strings"

	authDomain "github.com/allisson/scimgate/internal/auth/domain"
)

// Env carries the request facts an expression is evaluated against. All
// network-dependent facts (ownership) are pre-resolved by the caller;
// evaluation itself never blocks.
type Env struct {
	Principal authDomain.Principal
	Scopes    authDomain.ScopeSet
	// MethodScope is the scope name conventionally tied to the request's HTTP
	// method, resolved by the evaluator's MethodScopes mapping.
	MethodScope string
	// IsOwner is true only when the caller is a UserPrincipal whose id equals
	// the owner id of the targeted resource. Lookup failures make it false.
	IsOwner bool
}

// Expression is a boolean expression node over the authorization predicates.
// Evaluation is short-circuiting left-to-right and free of side effects.
type Expression interface {
	Evaluate(env Env) bool
	String() string
}

// Always permits unconditionally. Used by rules that require no scope.
type Always struct{}

// Evaluate implements Expression.
func (Always) Evaluate(Env) bool { return true }

func (Always) String() string { return "always" }

// ScopeForMethod is satisfied when the caller's scope set contains the scope
// conventionally tied to the request's HTTP method.
type ScopeForMethod struct{}

// Evaluate implements Expression.
func (ScopeForMethod) Evaluate(env Env) bool {
	return env.MethodScope != "" && env.Scopes.Has(env.MethodScope)
}

func (ScopeForMethod) String() string { return "scopeForMethod" }

// HasScope is satisfied when the caller's scope set contains the named scope.
type HasScope struct {
	Name string
}

// Evaluate implements Expression.
func (s HasScope) Evaluate(env Env) bool {
	return env.Scopes.Has(s.Name)
}

func (s HasScope) String() string { return fmt.Sprintf("scope(%s)", s.Name) }

// Owner is satisfied when the caller owns the targeted resource. It is never
// satisfied by a ClientPrincipal and fails closed on lookup errors.
type Owner struct{}

// Evaluate implements Expression.
func (Owner) Evaluate(env Env) bool { return env.IsOwner }

func (Owner) String() string { return "owner" }

// AnyOf is the OR combinator.
type AnyOf []Expression

// Evaluate implements Expression.
func (e AnyOf) Evaluate(env Env) bool {
	for _, sub := range e {
		if sub.Evaluate(env) {
			return true
		}
	}
	return false
}

func (e AnyOf) String() string { return combinatorString("anyOf", e) }

// AllOf is the AND combinator.
type AllOf []Expression

// Evaluate implements Expression.
func (e AllOf) Evaluate(env Env) bool {
	for _, sub := range e {
		if !sub.Evaluate(env) {
			return false
		}
	}
	return true
}

func (e AllOf) String() string { return combinatorString("allOf", e) }

// Not is the negation combinator.
type Not struct {
	Expr Expression
}

// Evaluate implements Expression.
func (e Not) Evaluate(env Env) bool { return !e.Expr.Evaluate(env) }

func (e Not) String() string { return fmt.Sprintf("not(%s)", e.Expr) }

func combinatorString(name string, exprs []Expression) string {
	parts := make([]string, len(exprs))
	for i, expr := range exprs {
		parts[i] = expr.String()
	}
	return fmt.Sprintf("%s(%s)", name, strings.Join(parts, ", "))
}
