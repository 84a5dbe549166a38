package http

import (
	"context"
	"time"

	authDomain "github.com/allisson/scimgate/internal/auth/domain"
	"github.com/allisson/scimgate/internal/auth/policy"
	apperrors "github.com/allisson/scimgate/internal/errors"
	"github.com/allisson/scimgate/internal/metrics"
)

// validatorWithMetrics decorates a TokenValidator with metrics instrumentation.
type validatorWithMetrics struct {
	next    TokenValidator
	metrics metrics.AccessMetrics
}

// NewValidatorWithMetrics wraps a TokenValidator with metrics recording.
func NewValidatorWithMetrics(validator TokenValidator, m metrics.AccessMetrics) TokenValidator {
	return &validatorWithMetrics{
		next:    validator,
		metrics: m,
	}
}

// Validate records metrics for token validation calls.
func (v *validatorWithMetrics) Validate(
	ctx context.Context,
	token string,
) (*authDomain.ValidatedToken, error) {
	start := time.Now()
	validated, err := v.next.Validate(ctx, token)

	outcome := validationOutcome(err)
	v.metrics.RecordOperation(ctx, "introspection", "token_validate", outcome)
	v.metrics.RecordDuration(ctx, "introspection", "token_validate", time.Since(start), outcome)

	return validated, err
}

// revokerWithMetrics decorates a TokenRevoker with metrics instrumentation.
type revokerWithMetrics struct {
	next    TokenRevoker
	metrics metrics.AccessMetrics
}

// NewRevokerWithMetrics wraps a TokenRevoker with metrics recording.
func NewRevokerWithMetrics(revoker TokenRevoker, m metrics.AccessMetrics) TokenRevoker {
	return &revokerWithMetrics{
		next:    revoker,
		metrics: m,
	}
}

// RevokeAccessTokens records metrics for revocation calls.
func (r *revokerWithMetrics) RevokeAccessTokens(ctx context.Context, userID, callerToken string) error {
	start := time.Now()
	err := r.next.RevokeAccessTokens(ctx, userID, callerToken)

	outcome := "success"
	switch {
	case apperrors.Is(err, apperrors.ErrForbidden):
		outcome = "forbidden"
	case apperrors.Is(err, apperrors.ErrUpstreamUnavailable):
		outcome = "upstream_error"
	case err != nil:
		outcome = "error"
	}

	r.metrics.RecordOperation(ctx, "revocation", "token_revoke", outcome)
	r.metrics.RecordDuration(ctx, "revocation", "token_revoke", time.Since(start), outcome)

	return err
}

// deciderWithMetrics decorates a Decider with metrics instrumentation.
type deciderWithMetrics struct {
	next    Decider
	metrics metrics.AccessMetrics
}

// NewDeciderWithMetrics wraps a Decider with metrics recording.
func NewDeciderWithMetrics(decider Decider, m metrics.AccessMetrics) Decider {
	return &deciderWithMetrics{
		next:    decider,
		metrics: m,
	}
}

// Decide records metrics for authorization decisions. Decisions carry no
// request context; counters are recorded against the background context.
func (d *deciderWithMetrics) Decide(
	principal authDomain.Principal,
	scopes authDomain.ScopeSet,
	rule *policy.Rule,
	facts policy.Facts,
) authDomain.Decision {
	start := time.Now()
	decision := d.next.Decide(principal, scopes, rule, facts)

	outcome := "deny"
	switch {
	case decision.Allowed():
		outcome = "allow"
	case apperrors.Is(decision.Err, apperrors.ErrInvalidToken):
		outcome = "invalid_token"
	case decision.Err != nil:
		outcome = "error"
	}

	ctx := context.Background()
	d.metrics.RecordOperation(ctx, "authorization", "policy_decide", outcome)
	d.metrics.RecordDuration(ctx, "authorization", "policy_decide", time.Since(start), outcome)

	return decision
}

// validationOutcome maps a validation error to a metric outcome label.
func validationOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case apperrors.Is(err, apperrors.ErrInvalidToken):
		return "invalid_token"
	case apperrors.Is(err, apperrors.ErrUpstreamUnavailable):
		return "upstream_error"
	default:
		return "error"
	}
}
