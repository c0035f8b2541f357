package domain

import (
	"time"

	memberdomain "community-cms/backend/internal/member/domain"
)

// Status is the workflow state of a membership request.
type Status string

const (
	StatusPending     Status = "PENDING"
	StatusUnderReview Status = "UNDER_REVIEW"
	StatusApproved    Status = "APPROVED"
	StatusRejected    Status = "REJECTED"
)

// IsTerminal reports whether no further transition is permitted from s.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusUnderReview, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// ApprovalSystem selects how a request under review is decided.
type ApprovalSystem string

const (
	// ApprovalSingle: one authorized actor decides.
	ApprovalSingle ApprovalSystem = "SINGLE"
	// ApprovalMultiBoard: board-eligible users vote and the approval threshold decides.
	ApprovalMultiBoard ApprovalSystem = "MULTI_BOARD"
)

// Normalize returns SINGLE for an unset system.
func (a ApprovalSystem) Normalize() ApprovalSystem {
	if a == "" {
		return ApprovalSingle
	}
	return a
}

// Valid reports whether a is a known approval system. The empty value is valid and means SINGLE.
func (a ApprovalSystem) Valid() bool {
	switch a.Normalize() {
	case ApprovalSingle, ApprovalMultiBoard:
		return true
	}
	return false
}

// Decision is an approve-or-reject verdict, given by a single decider or as a board vote.
type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionReject  Decision = "REJECT"
)

// Valid reports whether d is APPROVE or REJECT.
func (d Decision) Valid() bool {
	return d == DecisionApprove || d == DecisionReject
}

// Target returns the terminal status d leads to.
func (d Decision) Target() Status {
	if d == DecisionApprove {
		return StatusApproved
	}
	return StatusRejected
}

// MembershipRequest is an application for membership. It is never deleted; it ends in a terminal status.
// MemberID is set exactly when Status is APPROVED.
type MembershipRequest struct {
	ID             string
	FirstName      string
	LastName       string
	Email          string
	Phone          string
	Street         string
	PostalCode     string
	City           string
	RequestedType  memberdomain.MembershipType
	Motivation     string
	Status         Status
	ApprovalSystem ApprovalSystem
	AdminNotes     string
	MemberID       string
	// Version increments on every update and guards against lost updates.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Action labels a history entry.
type Action string

const (
	ActionSubmitted     Action = "submitted"
	ActionReviewStarted Action = "review_started"
	ActionVoteCast      Action = "vote_cast"
	ActionVoteChanged   Action = "vote_changed"
	ActionApproved      Action = "approved"
	ActionRejected      Action = "rejected"
)

// StatusHistoryEntry is one append-only audit record of a request. Entries of a request are
// ordered by Seq and chain: each entry's FromStatus equals the previous entry's ToStatus.
// The submission entry has an empty FromStatus; vote entries keep the status unchanged.
type StatusHistoryEntry struct {
	ID          string
	RequestID   string
	Seq         int
	Action      Action
	FromStatus  Status
	ToStatus    Status
	ActorUserID string
	Notes       string
	CreatedAt   time.Time
}

// Vote is a board member's current vote on a request. There is at most one per voter and request.
type Vote struct {
	RequestID   string
	VoterUserID string
	Decision    Decision
	Notes       string
	CastAt      time.Time
	UpdatedAt   time.Time
}
