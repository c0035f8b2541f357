package repository

import (
	"context"

	"community-cms/backend/internal/user/domain"
)

// Repository defines persistence for users.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// GetPrincipal returns the user joined with its linked member's type, or nil if the user does not exist.
	GetPrincipal(ctx context.Context, id string) (*domain.Principal, error)
	// ListBoardEligibleIDs returns the IDs of active users that are board-authorized: role BOARD or linked to an active BOARD member.
	ListBoardEligibleIDs(ctx context.Context) ([]string, error)
	Create(ctx context.Context, u *domain.User) error
	// LinkMember sets the user's linked member. A member may be linked to at most one user.
	LinkMember(ctx context.Context, userID, memberID string) error
}
