package access

import (
	"errors"
	"fmt"

	"github.com/spec-kit/constituent-access/internal/domain"
	"github.com/spec-kit/constituent-access/internal/query"
)

// ErrAccessDenied matches every *DeniedError via errors.Is.
var ErrAccessDenied = errors.New("access denied")

// Effect is the outcome of an evaluation.
type Effect int

const (
	// Deny means the operation must not reach storage.
	Deny Effect = iota

	// Allow means the operation is permitted on the supplied instance.
	Allow

	// AllowWithPredicate means the operation is permitted on the entities
	// matching Decision.Scope and nothing else.
	AllowWithPredicate
)

func (e Effect) String() string {
	switch e {
	case Allow:
		return "allow"
	case AllowWithPredicate:
		return "allow_with_predicate"
	default:
		return "deny"
	}
}

// Reason explains a Deny.
type Reason int

const (
	ReasonNone Reason = iota

	// ReasonExpired means the principal is missing, outside its employment
	// window, or carries an affiliation its role family does not allow.
	ReasonExpired

	// ReasonNoMatchingRule means no scope rule admits the principal, or the
	// instance lies outside the principal's scope.
	ReasonNoMatchingRule

	// ReasonInsufficientPermission means the principal is in scope but lacks
	// the token, or a temporary-staff restriction blocks it.
	ReasonInsufficientPermission
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonExpired:
		return "expired"
	case ReasonNoMatchingRule:
		return "no_matching_rule"
	case ReasonInsufficientPermission:
		return "insufficient_permission"
	default:
		return "unknown"
	}
}

// Decision is the result of Evaluate. Scope is meaningful only for
// AllowWithPredicate; Rule names the rule that produced the decision.
type Decision struct {
	Effect     Effect
	Reason     Reason
	Scope      query.Predicate
	Permission domain.Permission
	Rule       string
}

// Allowed reports whether the effect is Allow or AllowWithPredicate.
func (d Decision) Allowed() bool {
	return d.Effect != Deny
}

// Err converts a Deny into a *DeniedError, and returns nil otherwise.
func (d Decision) Err(kind domain.EntityType, op Operation) error {
	if d.Allowed() {
		return nil
	}
	return &DeniedError{Reason: d.Reason, Entity: kind, Operation: op, Permission: d.Permission}
}

func deny(reason Reason, rule string) Decision {
	return Decision{Effect: Deny, Reason: reason, Scope: query.None(), Rule: rule}
}

// DeniedError is returned whenever an evaluation denies an operation.
type DeniedError struct {
	Reason     Reason
	Entity     domain.EntityType
	Operation  Operation
	Permission domain.Permission
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("access denied: %s %s: %s", e.Operation, e.Entity, e.Reason)
}

// Is makes errors.Is(err, ErrAccessDenied) hold.
func (e *DeniedError) Is(target error) bool {
	return target == ErrAccessDenied
}

// ReasonOf extracts the deny reason from err, or ReasonNone.
func ReasonOf(err error) Reason {
	var denied *DeniedError
	if errors.As(err, &denied) {
		return denied.Reason
	}
	return ReasonNone
}
