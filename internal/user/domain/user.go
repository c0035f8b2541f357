package domain

import (
	"errors"
	"fmt"
	"time"

	memberdomain "community-cms/backend/internal/member/domain"
)

// User is a CMS account. LinkedMemberID is a weak reference to a member record and does not imply ownership.
type User struct {
	ID             string
	Email          string
	Name           string
	Role           Role
	LinkedMemberID string // empty when the account is not linked to a member
	Status         UserStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if !u.Role.Valid() {
		return fmt.Errorf("invalid role %q", u.Role)
	}
	if u.Status == "" {
		u.Status = UserStatusActive
	}
	return nil
}

// Role is an account role. Roles are totally ordered: USER < AUTHOR < MODERATOR < EDITOR < BOARD < ADMIN.
type Role string

const (
	RoleUser      Role = "USER"
	RoleAuthor    Role = "AUTHOR"
	RoleModerator Role = "MODERATOR"
	RoleEditor    Role = "EDITOR"
	RoleBoard     Role = "BOARD"
	RoleAdmin     Role = "ADMIN"
)

var roleRank = map[Role]int{
	RoleUser:      0,
	RoleAuthor:    1,
	RoleModerator: 2,
	RoleEditor:    3,
	RoleBoard:     4,
	RoleAdmin:     5,
}

// Roles returns all roles in ascending order of privilege.
func Roles() []Role {
	return []Role{RoleUser, RoleAuthor, RoleModerator, RoleEditor, RoleBoard, RoleAdmin}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// Rank returns the privilege rank of r, or -1 for an unknown role.
func (r Role) Rank() int {
	rank, ok := roleRank[r]
	if !ok {
		return -1
	}
	return rank
}

// AtLeast reports whether r is at or above min in the role order. Unknown roles are never at least anything.
func (r Role) AtLeast(min Role) bool {
	return r.Valid() && min.Valid() && r.Rank() >= min.Rank()
}

// ParseRole parses s as a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Principal is a user together with the membership type of its linked member.
// LinkedMemberType is empty when the user has no linked member or the member is not active.
type Principal struct {
	User             *User
	LinkedMemberType memberdomain.MembershipType
}

// IsBoardAuthorized reports whether the principal holds board-level workflow privileges,
// either through the BOARD account role or through a linked BOARD-type member.
func (p *Principal) IsBoardAuthorized() bool {
	if p == nil || p.User == nil {
		return false
	}
	return p.User.Role == RoleBoard || p.LinkedMemberType == memberdomain.MembershipTypeBoard
}

// UserID returns the principal's user ID, or "" for a nil principal.
func (p *Principal) UserID() string {
	if p == nil || p.User == nil {
		return ""
	}
	return p.User.ID
}
