// Package apperr defines the typed failure taxonomy shared by all
// services. Handlers map these to HTTP statuses; services return them
// as plain errors and never touch net/http.
package apperr

import (
	"fmt"
	"time"
)

// ValidationError reports malformed input, rejected before any lookup.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// AuthenticationError reports a bad or unknown credential or PIN.
// RemainingAttempts is carried for PIN failures (floored at zero); for
// device-secret failures it is left at -1 and not surfaced.
type AuthenticationError struct {
	Reason            string
	RemainingAttempts int
}

func (e *AuthenticationError) Error() string { return e.Reason }

// AuthorizationError reports a valid credential whose holder is not
// allowed to proceed (blocked or suspended unit, insufficient tier).
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string { return e.Reason }

// NotFoundError reports an unknown unit, ticket or other resource.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// RateLimitedError reports an exhausted attempt counter. RetryAfter is
// the time until the counter's decay window elapses.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("too many attempts, retry in %s", e.RetryAfter)
}

// StateTransitionError reports an illegal ticket transition. It is a
// normal failure result, not an exceptional condition.
type StateTransitionError struct {
	From   string
	To     string
	Reason string
}

func (e *StateTransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot transition %s -> %s: %s", e.From, e.To, e.Reason)
	}
	return fmt.Sprintf("cannot transition %s -> %s", e.From, e.To)
}

// ConflictError reports a storage-level uniqueness conflict. Duplicate
// idempotency keys are folded into success by the sync reconciler and
// never reach the caller as this type; it surfaces only where a
// conflict genuinely is a failure (e.g. exhausted ticket-number
// retries).
type ConflictError struct {
	Key string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on %q", e.Key)
}
