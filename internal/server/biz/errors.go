package biz

import (
	"errors"
)

var (
	// ErrNotFound covers both missing rows and rows the caller may not see,
	// so callers cannot probe for data of other organizations.
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")

	// ErrStatusIntegrity means a case references a status row that does not resolve.
	ErrStatusIntegrity = errors.New("case status integrity violation")

	ErrInvalidInput      = errors.New("invalid input")
	ErrSubdomainTaken    = errors.New("subdomain already taken")
	ErrMemberExists      = errors.New("member already exists")
	ErrLastOwner         = errors.New("organization must keep at least one owner")
	ErrStatusConflict    = errors.New("case status changed concurrently")
	ErrInvalidJWT        = errors.New("invalid jwt token")
	ErrAuthNotConfigured = errors.New("auth secret is not configured")
)

// TransitionRejectedError carries the reason a status change was refused.
type TransitionRejectedError struct {
	Reason string
}

func (e *TransitionRejectedError) Error() string {
	return "transition rejected: " + e.Reason
}

// IsTransitionRejected reports whether err is a rejection and returns it.
func IsTransitionRejected(err error) (*TransitionRejectedError, bool) {
	var rejected *TransitionRejectedError
	if errors.As(err, &rejected) {
		return rejected, true
	}

	return nil, false
}
