package domain

import "errors"

var (
	ErrNotFound = errors.New("membership request not found")
	// ErrInvalidTransition covers terminal-state mutations and protocol mismatches
	// such as voting on a SINGLE request.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrConflictingVote is returned to the losing writer of a race that moved the
	// request past the state it observed.
	ErrConflictingVote = errors.New("conflicting concurrent update")
	// ErrDependencyUnavailable means a store or setting needed for a binding decision could not be read.
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	ErrInvalidApplication    = errors.New("invalid application")
	ErrInvalidDecision       = errors.New("invalid decision")
	ErrInvalidStatus         = errors.New("invalid status")
)
