package handler

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"community-cms/backend/internal/permission"
	"community-cms/backend/internal/platform/rbac"
	"community-cms/backend/internal/server/interceptors"
	"community-cms/backend/internal/server/rpc"
	userdomain "community-cms/backend/internal/user/domain"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "cms.authz.v1.AuthzService"

// CapabilityLister lists the capabilities a principal holds.
type CapabilityLister interface {
	Capabilities(ctx context.Context, principal *userdomain.Principal) []permission.Capability
}

// Server answers permission questions for the calling user, or for any user when the caller is ADMIN.
type Server struct {
	gate   *rbac.Gate
	lister CapabilityLister
}

func NewServer(gate *rbac.Gate, lister CapabilityLister) *Server {
	return &Server{gate: gate, lister: lister}
}

// Service returns the gRPC service for s.
func (s *Server) Service() *rpc.Service {
	return rpc.NewService(ServiceName).
		Handle("CheckPermission", s.CheckPermission).
		Handle("ListCapabilities", s.ListCapabilities)
}

// CheckPermission reports whether the subject holds capability. A denial is a normal answer,
// not an error.
func (s *Server) CheckPermission(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	capability, err := rpc.Required(req, "capability")
	if err != nil {
		return nil, err
	}
	subject, err := s.subject(ctx, req)
	if err != nil {
		return nil, err
	}
	d := s.gate.Authorize(ctx, subject, rbac.Requirement{Capability: permission.Capability(capability)})
	if d.Outcome == rbac.Unauthenticated {
		return nil, status.Error(codes.Unauthenticated, "authentication required")
	}
	return rpc.Response(map[string]any{
		"user_id":    subject,
		"capability": capability,
		"allowed":    d.Outcome == rbac.Authorized,
		"reason":     d.Reason,
	})
}

// ListCapabilities returns every capability the subject holds.
func (s *Server) ListCapabilities(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	subject, err := s.subject(ctx, req)
	if err != nil {
		return nil, err
	}
	p, err := s.gate.Check(ctx, subject, rbac.Requirement{})
	if err != nil {
		if errors.Is(err, rbac.ErrUnauthenticated) {
			return nil, status.Error(codes.Unauthenticated, "authentication required")
		}
		return nil, status.Error(codes.PermissionDenied, err.Error())
	}
	caps := s.lister.Capabilities(ctx, p)
	names := make([]any, 0, len(caps))
	for _, c := range caps {
		names = append(names, string(c))
	}
	return rpc.Response(map[string]any{
		"user_id":          subject,
		"role":             string(p.User.Role),
		"board_authorized": p.IsBoardAuthorized(),
		"capabilities":     names,
	})
}

// subject returns the user the question is about. Asking about another user requires ADMIN.
func (s *Server) subject(ctx context.Context, req *structpb.Struct) (string, error) {
	caller, _ := interceptors.GetUserID(ctx)
	target := rpc.String(req, "user_id")
	if target == "" || target == caller {
		if caller == "" {
			return "", status.Error(codes.Unauthenticated, "authentication required")
		}
		return caller, nil
	}
	if _, err := rbac.Require(ctx, s.gate, rbac.Requirement{Roles: []userdomain.Role{userdomain.RoleAdmin}}); err != nil {
		return "", err
	}
	return target, nil
}
