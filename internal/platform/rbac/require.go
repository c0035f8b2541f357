package rbac

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	userdomain "community-cms/backend/internal/user/domain"
)

// Require runs the gate for the caller on ctx and returns the principal, or a gRPC error
// (Unauthenticated or PermissionDenied) on failure.
func Require(ctx context.Context, gate *Gate, req Requirement) (*userdomain.Principal, error) {
	d := gate.AuthorizeContext(ctx, req)
	if err := d.Err(); err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			return nil, status.Error(codes.Unauthenticated, "authentication required")
		}
		return nil, status.Error(codes.PermissionDenied, d.Reason)
	}
	return d.Principal, nil
}
