package auth

import (
	"errors"
	"fmt"
)

// ResolutionKind classifies why a principal could not be resolved.
type ResolutionKind int

const (
	ProfileNotFound ResolutionKind = iota + 1
	InvalidAffiliation
	AccessExpired
	AccessNotStarted
	MissingSupervisor
)

func (k ResolutionKind) String() string {
	switch k {
	case ProfileNotFound:
		return "profile_not_found"
	case InvalidAffiliation:
		return "invalid_affiliation"
	case AccessExpired:
		return "access_expired"
	case AccessNotStarted:
		return "access_not_started"
	case MissingSupervisor:
		return "missing_supervisor"
	default:
		return "unknown"
	}
}

// ErrResolution matches every *ResolutionError.
var ErrResolution = errors.New("principal resolution failed")

// ResolutionError is fatal to the request: the caller has no usable session.
type ResolutionError struct {
	Kind        ResolutionKind
	PrincipalID string
	Err         error
}

func (e *ResolutionError) Error() string {
	msg := fmt.Sprintf("resolve principal %s: %s", e.PrincipalID, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// Is matches ErrResolution and any *ResolutionError of the same kind.
func (e *ResolutionError) Is(target error) bool {
	if target == ErrResolution {
		return true
	}
	var other *ResolutionError
	if errors.As(target, &other) {
		return other.Kind == e.Kind
	}
	return false
}

// KindOf returns the resolution kind carried by err, or zero.
func KindOf(err error) ResolutionKind {
	var re *ResolutionError
	if errors.As(err, &re) {
		return re.Kind
	}
	return 0
}

func resolutionError(kind ResolutionKind, id string, err error) *ResolutionError {
	return &ResolutionError{Kind: kind, PrincipalID: id, Err: err}
}
