package handler

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	memberdomain "community-cms/backend/internal/member/domain"
	"community-cms/backend/internal/membershiprequest/domain"
	"community-cms/backend/internal/platform/rbac"
	"community-cms/backend/internal/server/interceptors"
	"community-cms/backend/internal/server/rpc"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "cms.membership.v1.MembershipRequestService"

// SubmitFullMethod is the full method name of the public submission RPC.
const SubmitFullMethod = "/" + ServiceName + "/SubmitMembershipRequest"

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Workflow is the approval workflow used by the handler.
type Workflow interface {
	Submit(ctx context.Context, app domain.Application) (*domain.MembershipRequest, error)
	BeginReview(ctx context.Context, requestID, actorUserID, notes string) (*domain.MembershipRequest, error)
	Decide(ctx context.Context, requestID, actorUserID string, decision domain.Decision, notes string) (*domain.MembershipRequest, error)
	CastVote(ctx context.Context, requestID, actorUserID string, decision domain.Decision, notes string) (*domain.MembershipRequest, error)
	GetRequest(ctx context.Context, requestID, actorUserID string) (*domain.MembershipRequest, error)
	ListRequests(ctx context.Context, actorUserID string, status domain.Status, limit, offset int32) ([]*domain.MembershipRequest, error)
	GetHistory(ctx context.Context, requestID, actorUserID string) ([]domain.StatusHistoryEntry, error)
	Tally(ctx context.Context, requestID, actorUserID string) (domain.TallyResult, error)
}

// Server implements MembershipRequestService.
type Server struct {
	workflow Workflow
}

// NewServer returns a new MembershipRequest gRPC server. If workflow is nil, all methods return Unimplemented.
func NewServer(workflow Workflow) *Server {
	return &Server{workflow: workflow}
}

// Service returns the gRPC service for s.
func (s *Server) Service() *rpc.Service {
	return rpc.NewService(ServiceName).
		Handle("SubmitMembershipRequest", s.SubmitMembershipRequest).
		Handle("GetMembershipRequest", s.GetMembershipRequest).
		Handle("ListMembershipRequests", s.ListMembershipRequests).
		Handle("BeginReview", s.BeginReview).
		Handle("Decide", s.Decide).
		Handle("CastVote", s.CastVote).
		Handle("GetHistory", s.GetHistory).
		Handle("GetTally", s.GetTally)
}

// SubmitMembershipRequest is public: applicants have no account.
func (s *Server) SubmitMembershipRequest(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.workflow == nil {
		return nil, status.Error(codes.Unimplemented, "method SubmitMembershipRequest not implemented")
	}
	out, err := s.workflow.Submit(ctx, domain.Application{
		FirstName:      rpc.String(req, "first_name"),
		LastName:       rpc.String(req, "last_name"),
		Email:          rpc.String(req, "email"),
		Phone:          rpc.String(req, "phone"),
		Street:         rpc.String(req, "street"),
		PostalCode:     rpc.String(req, "postal_code"),
		City:           rpc.String(req, "city"),
		RequestedType:  memberdomain.MembershipType(rpc.String(req, "membership_type")),
		Motivation:     rpc.String(req, "motivation"),
		ApprovalSystem: domain.ApprovalSystem(rpc.String(req, "approval_system")),
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return requestResponse(out)
}

func (s *Server) GetMembershipRequest(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.workflow == nil {
		return nil, status.Error(codes.Unimplemented, "method GetMembershipRequest not implemented")
	}
	id, err := rpc.Required(req, "request_id")
	if err != nil {
		return nil, err
	}
	out, err := s.workflow.GetRequest(ctx, id, actor(ctx))
	if err != nil {
		return nil, toStatus(err)
	}
	return requestResponse(out)
}

// ListMembershipRequests returns a page of requests, newest first. Optional filter: status.
func (s *Server) ListMembershipRequests(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.workflow == nil {
		return nil, status.Error(codes.Unimplemented, "method ListMembershipRequests not implemented")
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
	list, err := s.workflow.ListRequests(ctx, actor(ctx), domain.Status(rpc.String(req, "status")), limit, offset)
	if err != nil {
		return nil, toStatus(err)
	}
	items := make([]any, 0, len(list))
	for _, r := range list {
		items = append(items, requestFields(r))
	}
	return rpc.Response(map[string]any{"requests": items, "next_offset": float64(offset + int32(len(list)))})
}

func (s *Server) BeginReview(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.workflow == nil {
		return nil, status.Error(codes.Unimplemented, "method BeginReview not implemented")
	}
	id, err := rpc.Required(req, "request_id")
	if err != nil {
		return nil, err
	}
	out, err := s.workflow.BeginReview(ctx, id, actor(ctx), rpc.String(req, "notes"))
	if err != nil {
		return nil, toStatus(err)
	}
	return requestResponse(out)
}

// Decide applies a verdict to a SINGLE request. decision is APPROVE or REJECT.
func (s *Server) Decide(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.workflow == nil {
		return nil, status.Error(codes.Unimplemented, "method Decide not implemented")
	}
	id, decision, err := decisionArgs(req)
	if err != nil {
		return nil, err
	}
	out, err := s.workflow.Decide(ctx, id, actor(ctx), decision, rpc.String(req, "notes"))
	if err != nil {
		return nil, toStatus(err)
	}
	return requestResponse(out)
}

// CastVote records a board vote on a MULTI_BOARD request.
func (s *Server) CastVote(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.workflow == nil {
		return nil, status.Error(codes.Unimplemented, "method CastVote not implemented")
	}
	id, decision, err := decisionArgs(req)
	if err != nil {
		return nil, err
	}
	out, err := s.workflow.CastVote(ctx, id, actor(ctx), decision, rpc.String(req, "notes"))
	if err != nil {
		return nil, toStatus(err)
	}
	return requestResponse(out)
}

func (s *Server) GetHistory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.workflow == nil {
		return nil, status.Error(codes.Unimplemented, "method GetHistory not implemented")
	}
	id, err := rpc.Required(req, "request_id")
	if err != nil {
		return nil, err
	}
	history, err := s.workflow.GetHistory(ctx, id, actor(ctx))
	if err != nil {
		return nil, toStatus(err)
	}
	entries := make([]any, 0, len(history))
	for _, h := range history {
		entries = append(entries, map[string]any{
			"id":            h.ID,
			"seq":           float64(h.Seq),
			"action":        string(h.Action),
			"from_status":   string(h.FromStatus),
			"to_status":     string(h.ToStatus),
			"actor_user_id": h.ActorUserID,
			"notes":         h.Notes,
			"created_at":    h.CreatedAt.Format(time.RFC3339),
		})
	}
	return rpc.Response(map[string]any{"request_id": id, "entries": entries})
}

func (s *Server) GetTally(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.workflow == nil {
		return nil, status.Error(codes.Unimplemented, "method GetTally not implemented")
	}
	id, err := rpc.Required(req, "request_id")
	if err != nil {
		return nil, err
	}
	t, err := s.workflow.Tally(ctx, id, actor(ctx))
	if err != nil {
		return nil, toStatus(err)
	}
	return rpc.Response(map[string]any{
		"request_id":  id,
		"threshold":   string(t.Threshold),
		"roster_size": float64(t.RosterSize),
		"approvals":   float64(t.Approvals),
		"rejections":  float64(t.Rejections),
		"required":    float64(t.Required),
		"outcome":     string(t.Outcome),
	})
}

func actor(ctx context.Context) string {
	id, _ := interceptors.GetUserID(ctx)
	return id
}

func decisionArgs(req *structpb.Struct) (string, domain.Decision, error) {
	id, err := rpc.Required(req, "request_id")
	if err != nil {
		return "", "", err
	}
	d, err := rpc.Required(req, "decision")
	if err != nil {
		return "", "", err
	}
	return id, domain.Decision(d), nil
}

func requestResponse(r *domain.MembershipRequest) (*structpb.Struct, error) {
	return rpc.Response(map[string]any{"request": requestFields(r)})
}

func requestFields(r *domain.MembershipRequest) map[string]any {
	return map[string]any{
		"id":              r.ID,
		"first_name":      r.FirstName,
		"last_name":       r.LastName,
		"email":           r.Email,
		"phone":           r.Phone,
		"street":          r.Street,
		"postal_code":     r.PostalCode,
		"city":            r.City,
		"membership_type": string(r.RequestedType),
		"motivation":      r.Motivation,
		"status":          string(r.Status),
		"approval_system": string(r.ApprovalSystem),
		"admin_notes":     r.AdminNotes,
		"member_id":       r.MemberID,
		"created_at":      r.CreatedAt.Format(time.RFC3339),
		"updated_at":      r.UpdatedAt.Format(time.RFC3339),
	}
}

// toStatus maps workflow and gate errors to gRPC status codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, rbac.ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, "authentication required")
	case errors.Is(err, rbac.ErrForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, "membership request not found")
	case errors.Is(err, domain.ErrInvalidApplication),
		errors.Is(err, domain.ErrInvalidDecision),
		errors.Is(err, domain.ErrInvalidStatus):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, domain.ErrConflictingVote):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, domain.ErrDependencyUnavailable):
		return status.Error(codes.Unavailable, "dependency unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	}
	return status.Error(codes.Internal, "internal error")
}
