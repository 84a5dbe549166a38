package policy

import (
	"log/slog"
	"strings"
	"time"

	authDomain "github.com/allisson/scimgate/internal/auth/domain"
	apperrors "github.com/allisson/scimgate/internal/errors"
)

// MethodScopes maps HTTP verbs to the scope name that covers them. The
// mapping is a configuration concern owned by the scope-naming convention;
// it is injected, never hard-coded into evaluation logic.
type MethodScopes map[string]string

// DefaultMethodScopes returns the original convention: each verb is covered
// by the scope of the same name.
func DefaultMethodScopes() MethodScopes {
	return MethodScopes{
		"GET":    "GET",
		"POST":   "POST",
		"PUT":    "PUT",
		"PATCH":  "PATCH",
		"DELETE": "DELETE",
	}
}

// ParseMethodScopes parses a comma-separated list of METHOD=SCOPE pairs
// (e.g., "GET=READ,POST=WRITE") as overrides on top of the default
// convention. An empty input returns the defaults unchanged.
func ParseMethodScopes(raw string) (MethodScopes, error) {
	mapping := DefaultMethodScopes()
	if strings.TrimSpace(raw) == "" {
		return mapping, nil
	}

	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		method, scope, ok := strings.Cut(pair, "=")
		method = strings.ToUpper(strings.TrimSpace(method))
		scope = strings.TrimSpace(scope)
		if !ok || method == "" || scope == "" {
			return nil, apperrors.Wrapf(apperrors.ErrInvalidInput, "invalid method scope pair %q", pair)
		}
		mapping[method] = scope
	}

	return mapping, nil
}

// ScopeFor returns the scope name covering the given HTTP method, or "" when
// the convention defines none.
func (m MethodScopes) ScopeFor(method string) string {
	return m[strings.ToUpper(method)]
}

// Facts carries the request-specific inputs the evaluator needs beyond the
// authentication context. Everything here is pre-resolved; Decide never
// blocks on the network.
type Facts struct {
	// Method is the request's HTTP verb.
	Method string
	// ResourceOwnerID is the owner of the targeted resource, or "" when the
	// path targets nothing ownable.
	ResourceOwnerID string
	// OwnerLookupErr records a failed ownership lookup. Ownership-dependent
	// clauses fail closed when set.
	OwnerLookupErr error
	// TokenExpiresAt is the validated token's expiration instant.
	TokenExpiresAt time.Time
}

// Evaluator resolves a matched rule's expression to an authorization
// decision. It holds no per-request state and is safe for concurrent use.
type Evaluator struct {
	methodScopes MethodScopes
	logger       *slog.Logger
}

// NewEvaluator creates an evaluator with the given method-to-scope convention.
func NewEvaluator(methodScopes MethodScopes, logger *slog.Logger) *Evaluator {
	if methodScopes == nil {
		methodScopes = DefaultMethodScopes()
	}
	return &Evaluator{
		methodScopes: methodScopes,
		logger:       logger,
	}
}

// Decide evaluates the matched rule against the authentication context and
// the pre-resolved request facts.
//
// A nil rule means no structural match was found: that is a policy
// misconfiguration and fails closed to an error decision, never a silent
// allow. An expired token never yields Allow, regardless of scopes.
func (e *Evaluator) Decide(
	principal authDomain.Principal,
	scopes authDomain.ScopeSet,
	rule *Rule,
	facts Facts,
) authDomain.Decision {
	if rule == nil {
		e.logger.Error("no policy rule matched request; denying",
			slog.String("method", facts.Method),
		)
		return authDomain.Error(apperrors.ErrPolicyMisconfigured, "no policy rule matched the request")
	}

	if !facts.TokenExpiresAt.IsZero() && !facts.TokenExpiresAt.After(time.Now()) {
		return authDomain.Error(apperrors.ErrInvalidToken, "token is expired")
	}

	env := Env{
		Principal:   principal,
		Scopes:      scopes,
		MethodScope: e.methodScopes.ScopeFor(facts.Method),
		IsOwner:     e.isOwner(principal, facts),
	}

	if rule.Expr.Evaluate(env) {
		return authDomain.Allow()
	}

	if facts.OwnerLookupErr != nil {
		// The deny may be a consequence of the failed lookup; surface that in
		// the diagnostic without changing the fail-closed outcome.
		e.logger.Warn("ownership lookup failed during policy evaluation",
			slog.String("rule", rule.Name),
			slog.Any("error", facts.OwnerLookupErr),
		)
		return authDomain.Deny("access denied by rule " + rule.Name + " (ownership could not be established)")
	}

	return authDomain.Deny("access denied by rule " + rule.Name)
}

// isOwner resolves the ownership predicate: true only for a UserPrincipal
// whose id equals the resource owner's id. ClientPrincipal callers and failed
// lookups never own anything.
func (e *Evaluator) isOwner(principal authDomain.Principal, facts Facts) bool {
	if facts.OwnerLookupErr != nil || facts.ResourceOwnerID == "" {
		return false
	}
	user, ok := principal.(authDomain.UserPrincipal)
	if !ok {
		return false
	}
	return user.UserID == facts.ResourceOwnerID
}
