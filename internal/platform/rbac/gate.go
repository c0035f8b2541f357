// Package rbac guards actions behind an authenticated identity, an allowed role set and a
// capability. The gate is side-effect free: it never logs and never mutates state.
package rbac

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"community-cms/backend/internal/permission"
	"community-cms/backend/internal/server/interceptors"
	userdomain "community-cms/backend/internal/user/domain"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

// PrincipalLoader resolves a user and its linked member's type. A nil principal with a nil
// error means the user does not exist.
type PrincipalLoader interface {
	GetPrincipal(ctx context.Context, userID string) (*userdomain.Principal, error)
}

// PermissionChecker answers capability questions for a principal.
type PermissionChecker interface {
	HasPermission(ctx context.Context, principal *userdomain.Principal, capability permission.Capability) bool
}

// Requirement describes what an action needs beyond an authenticated identity.
// An empty Roles set allows every role; an empty Capability skips the capability check.
type Requirement struct {
	Roles      []userdomain.Role
	Capability permission.Capability
}

type Outcome int

const (
	Authorized Outcome = iota
	Unauthenticated
	Forbidden
)

func (o Outcome) String() string {
	switch o {
	case Authorized:
		return "authorized"
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	}
	return "unknown"
}

// Decision is the result of a gate check. Principal is set only when Outcome is Authorized.
type Decision struct {
	Outcome   Outcome
	Principal *userdomain.Principal
	Reason    string
}

// Err returns nil for Authorized, otherwise an error wrapping ErrUnauthenticated or ErrForbidden.
func (d Decision) Err() error {
	switch d.Outcome {
	case Authorized:
		return nil
	case Unauthenticated:
		return ErrUnauthenticated
	default:
		if d.Reason == "" {
			return ErrForbidden
		}
		return fmt.Errorf("%w: %s", ErrForbidden, d.Reason)
	}
}

// Gate checks requirements against the stored identity of a user.
type Gate struct {
	principals  PrincipalLoader
	permissions PermissionChecker
}

// NewGate returns a Gate.
func NewGate(principals PrincipalLoader, permissions PermissionChecker) *Gate {
	return &Gate{principals: principals, permissions: permissions}
}

// Authorize evaluates req for userID. The role set is checked before the capability.
// Any failure resolving the identity is Forbidden, never Authorized.
func (g *Gate) Authorize(ctx context.Context, userID string, req Requirement) Decision {
	if userID == "" {
		return Decision{Outcome: Unauthenticated, Reason: "authentication required"}
	}
	p, err := g.principals.GetPrincipal(ctx, userID)
	if err != nil {
		return forbidden("identity could not be resolved")
	}
	if p == nil || p.User == nil {
		return forbidden("unknown user")
	}
	if p.User.Status != userdomain.UserStatusActive {
		return forbidden("user is not active")
	}
	if len(req.Roles) > 0 && !slices.Contains(req.Roles, p.User.Role) {
		return forbidden("role not permitted")
	}
	if req.Capability != "" && !g.permissions.HasPermission(ctx, p, req.Capability) {
		return forbidden("missing capability " + string(req.Capability))
	}
	return Decision{Outcome: Authorized, Principal: p}
}

// AuthorizeContext is Authorize for the user set on ctx by the auth interceptor.
func (g *Gate) AuthorizeContext(ctx context.Context, req Requirement) Decision {
	userID, _ := interceptors.GetUserID(ctx)
	return g.Authorize(ctx, userID, req)
}

// Check returns the authorized principal or the decision's error.
func (g *Gate) Check(ctx context.Context, userID string, req Requirement) (*userdomain.Principal, error) {
	d := g.Authorize(ctx, userID, req)
	if err := d.Err(); err != nil {
		return nil, err
	}
	return d.Principal, nil
}

func forbidden(reason string) Decision {
	return Decision{Outcome: Forbidden, Reason: reason}
}
