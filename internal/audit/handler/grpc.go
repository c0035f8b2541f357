package handler

import (
	"context"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"community-cms/backend/internal/audit/domain"
	auditrepo "community-cms/backend/internal/audit/repository"
	"community-cms/backend/internal/platform/rbac"
	"community-cms/backend/internal/server/rpc"
	userdomain "community-cms/backend/internal/user/domain"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "cms.audit.v1.AuditService"

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// Server serves audit log queries to administrators.
type Server struct {
	repo auditrepo.Repository
	gate *rbac.Gate
}

// NewServer returns a new Audit gRPC server. If repo is nil, ListAuditLogs returns Unimplemented.
func NewServer(repo auditrepo.Repository, gate *rbac.Gate) *Server {
	return &Server{repo: repo, gate: gate}
}

// Service returns the gRPC service for s.
func (s *Server) Service() *rpc.Service {
	return rpc.NewService(ServiceName).Handle("ListAuditLogs", s.ListAuditLogs)
}

// ListAuditLogs returns a page of audit logs, newest first. Optional filters: user_id, action, resource.
func (s *Server) ListAuditLogs(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.repo == nil {
		return nil, status.Error(codes.Unimplemented, "method ListAuditLogs not implemented")
	}
	if _, err := rbac.Require(ctx, s.gate, rbac.Requirement{Roles: []userdomain.Role{userdomain.RoleAdmin}}); err != nil {
		return nil, err
	}
	limit := rpc.Int(req, "page_size", defaultPageSize)
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset := rpc.Int(req, "offset", 0)
	if offset < 0 {
		offset = 0
	}
	f := domain.Filter{
		UserID:   rpc.String(req, "user_id"),
		Action:   rpc.String(req, "action"),
		Resource: rpc.String(req, "resource"),
	}
	logs, err := s.repo.List(ctx, f, limit, offset)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to list audit logs")
	}
	items := make([]any, 0, len(logs))
	for _, l := range logs {
		items = append(items, map[string]any{
			"id":         l.ID,
			"user_id":    l.UserID,
			"action":     l.Action,
			"resource":   l.Resource,
			"ip":         l.IP,
			"metadata":   l.Metadata,
			"created_at": l.CreatedAt.Format(time.RFC3339),
		})
	}
	return rpc.Response(map[string]any{"logs": items, "next_offset": float64(offset + int32(len(logs)))})
}
