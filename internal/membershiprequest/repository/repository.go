package repository

import (
	"context"

	memberdomain "community-cms/backend/internal/member/domain"
	"community-cms/backend/internal/membershiprequest/domain"
)

// Store persists membership requests with their history and votes.
type Store interface {
	// Create inserts a new request together with its submission history entry.
	Create(ctx context.Context, req *domain.MembershipRequest, entry *domain.StatusHistoryEntry) error
	// GetByID returns the request for id, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.MembershipRequest, error)
	// List returns requests, newest first. An empty status matches all.
	List(ctx context.Context, status domain.Status, limit, offset int32) ([]*domain.MembershipRequest, error)
	// ListHistory returns the request's history ordered by Seq.
	ListHistory(ctx context.Context, requestID string) ([]domain.StatusHistoryEntry, error)
	// ListVotes returns the current vote of each voter, ordered by cast time.
	ListVotes(ctx context.Context, requestID string) ([]domain.Vote, error)
	// WithLockedRequest runs fn with exclusive access to request id. Everything fn writes
	// through tx is committed atomically when fn returns nil and discarded otherwise.
	// Returns domain.ErrNotFound when the request does not exist.
	WithLockedRequest(ctx context.Context, id string, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the write surface available while a request is locked.
type Tx interface {
	// Request returns a copy of the request as read under the lock.
	Request() *domain.MembershipRequest
	// UpdateRequest stores req and increments its Version. It fails with
	// domain.ErrConflictingVote if the stored version moved since the lock was taken.
	UpdateRequest(ctx context.Context, req *domain.MembershipRequest) error
	// AppendHistory assigns entry.Seq and stores it.
	AppendHistory(ctx context.Context, entry *domain.StatusHistoryEntry) error
	ListVotes(ctx context.Context) ([]domain.Vote, error)
	// SaveVote inserts or replaces the voter's vote.
	SaveVote(ctx context.Context, v *domain.Vote) error
	// NextMemberSeq draws the next member number sequence value. Drawn values are not
	// returned on rollback.
	NextMemberSeq(ctx context.Context) (int64, error)
	CreateMember(ctx context.Context, m *memberdomain.Member) error
}
