// Package errors provides standardized domain errors that express the
// access-control taxonomy rather than infrastructure details. These errors are
// returned by the introspection client and the policy evaluator and mapped to
// HTTP status codes by handlers and middleware.
package errors

import (
	"errors"
	"fmt"
)

// Standard domain errors used across the access-control pipeline.
var (
	// ErrUnauthorized indicates the request carries no usable credentials
	// (missing or malformed Authorization header).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidToken indicates the bearer token was rejected by the
	// authorization server: malformed, unknown, revoked, or expired.
	// Always client-facing (401), never retried.
	ErrInvalidToken = errors.New("invalid token")

	// ErrUpstreamUnavailable indicates the authorization server could not be
	// reached or answered with an infrastructure error (network failure,
	// timeout, 5xx). Maps to 503.
	ErrUpstreamUnavailable = errors.New("authorization server unavailable")

	// ErrForbidden indicates the authenticated caller does not have
	// permission for the requested method and path.
	ErrForbidden = errors.New("forbidden")

	// ErrPolicyMisconfigured indicates no policy rule structurally matched a
	// request. The request is denied and the condition logged loudly.
	ErrPolicyMisconfigured = errors.New("policy misconfigured")

	// ErrOwnershipLookupFailed indicates the owner of the targeted resource
	// could not be determined. Ownership-dependent rules fail closed.
	ErrOwnershipLookupFailed = errors.New("ownership lookup failed")

	// ErrInvalidInput indicates input data (request or configuration) failed
	// validation.
	ErrInvalidInput = errors.New("invalid input")
)

// New creates a new error with the given message.
// This is a convenience wrapper around errors.New for consistency.
func New(message string) error {
	return errors.New(message)
}

// Wrap wraps an error with additional context while preserving the error chain.
// Use this to add context at each layer without losing the original error type.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context while preserving the error chain.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's tree matches target.
// This is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
// This is a convenience wrapper around errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}
