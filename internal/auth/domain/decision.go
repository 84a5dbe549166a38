package domain

// Effect is the outcome class of an authorization decision.
type Effect int

const (
	// EffectAllow lets the request proceed to the protected resource.
	EffectAllow Effect = iota

	// EffectDeny rejects the request with 403 Forbidden.
	EffectDeny

	// EffectError rejects the request because the decision could not be made
	// (invalid token, unreachable authorization server, misconfigured policy).
	// The wrapped error determines the HTTP status.
	EffectError
)

// Decision is the result of evaluating a policy rule against an
// authentication context. It is derived per request and never persisted.
// Every non-Allow decision carries enough information to produce an accurate
// HTTP status and a non-sensitive diagnostic message.
type Decision struct {
	Effect Effect
	Reason string // Non-sensitive diagnostic, safe to log and return
	Err    error  // Set only for EffectError decisions
}

// Allow builds an allowing decision.
func Allow() Decision {
	return Decision{Effect: EffectAllow}
}

// Deny builds a denying decision with a diagnostic reason.
func Deny(reason string) Decision {
	return Decision{Effect: EffectDeny, Reason: reason}
}

// Error builds an error decision wrapping the cause.
func Error(err error, reason string) Decision {
	return Decision{Effect: EffectError, Reason: reason, Err: err}
}

// Allowed reports whether the request may proceed.
func (d Decision) Allowed() bool {
	return d.Effect == EffectAllow
}
