package handler

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	memberdomain "community-cms/backend/internal/member/domain"
	"community-cms/backend/internal/permission"
	"community-cms/backend/internal/platform/rbac"
	"community-cms/backend/internal/server/rpc"
	"community-cms/backend/internal/user/domain"
	userrepo "community-cms/backend/internal/user/repository"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "cms.user.v1.UserService"

// UserStore is the subset of the user repository the handler needs.
type UserStore interface {
	GetPrincipal(ctx context.Context, id string) (*domain.Principal, error)
	LinkMember(ctx context.Context, userID, memberID string) error
}

// MemberLookup resolves member records.
type MemberLookup interface {
	GetByID(ctx context.Context, id string) (*memberdomain.Member, error)
}

// Server implements UserService.
type Server struct {
	users   UserStore
	members MemberLookup
	gate    *rbac.Gate
}

// NewServer returns a new User gRPC server.
func NewServer(users UserStore, members MemberLookup, gate *rbac.Gate) *Server {
	return &Server{users: users, members: members, gate: gate}
}

// Service returns the gRPC service for s.
func (s *Server) Service() *rpc.Service {
	return rpc.NewService(ServiceName).
		Handle("GetCurrentUser", s.GetCurrentUser).
		Handle("GetUser", s.GetUser).
		Handle("LinkMember", s.LinkMember)
}

// GetCurrentUser returns the authenticated caller.
func (s *Server) GetCurrentUser(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	p, err := rbac.Require(ctx, s.gate, rbac.Requirement{})
	if err != nil {
		return nil, err
	}
	return userResponse(p)
}

// GetUser returns a user by ID. Callers may always read themselves; reading others requires view_members.
func (s *Server) GetUser(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := rpc.Required(req, "user_id")
	if err != nil {
		return nil, err
	}
	caller, err := rbac.Require(ctx, s.gate, rbac.Requirement{})
	if err != nil {
		return nil, err
	}
	if caller.UserID() != userID {
		if _, err := rbac.Require(ctx, s.gate, rbac.Requirement{Capability: permission.ViewMembers}); err != nil {
			return nil, err
		}
	}
	p, err := s.users.GetPrincipal(ctx, userID)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to get user")
	}
	if p == nil {
		return nil, status.Error(codes.NotFound, "user not found")
	}
	return userResponse(p)
}

// LinkMember links a user account to a member record. Only administrators may link accounts.
func (s *Server) LinkMember(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := rpc.Required(req, "user_id")
	if err != nil {
		return nil, err
	}
	memberID, err := rpc.Required(req, "member_id")
	if err != nil {
		return nil, err
	}
	if _, err := rbac.Require(ctx, s.gate, rbac.Requirement{Roles: []domain.Role{domain.RoleAdmin}}); err != nil {
		return nil, err
	}
	m, err := s.members.GetByID(ctx, memberID)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to get member")
	}
	if m == nil {
		return nil, status.Error(codes.NotFound, "member not found")
	}
	if err := s.users.LinkMember(ctx, userID, memberID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, status.Error(codes.NotFound, "user not found")
		}
		if errors.Is(err, userrepo.ErrMemberAlreadyLinked) {
			return nil, status.Error(codes.AlreadyExists, err.Error())
		}
		return nil, status.Error(codes.Internal, "failed to link member")
	}
	p, err := s.users.GetPrincipal(ctx, userID)
	if err != nil || p == nil {
		return nil, status.Error(codes.Internal, "failed to reload user")
	}
	return userResponse(p)
}

func userResponse(p *domain.Principal) (*structpb.Struct, error) {
	u := p.User
	return rpc.Response(map[string]any{
		"id":               u.ID,
		"email":            u.Email,
		"name":             u.Name,
		"role":             string(u.Role),
		"status":           string(u.Status),
		"linked_member_id": u.LinkedMemberID,
		"board_authorized": p.IsBoardAuthorized(),
		"created_at":       u.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at":       u.UpdatedAt.UTC().Format(time.RFC3339),
	})
}
