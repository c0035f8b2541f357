package server

import (
	"log/slog"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	healthgrpc "google.golang.org/grpc/health/grpc_health_v1"

	"community-cms/backend/internal/audit"
	audithandler "community-cms/backend/internal/audit/handler"
	auditrepo "community-cms/backend/internal/audit/repository"
	healthhandler "community-cms/backend/internal/health/handler"
	membershiphandler "community-cms/backend/internal/membershiprequest/handler"
	permissionhandler "community-cms/backend/internal/permission/handler"
	"community-cms/backend/internal/platform/rbac"
	"community-cms/backend/internal/server/interceptors"
	"community-cms/backend/internal/server/rpc"
	userhandler "community-cms/backend/internal/user/handler"
)

// Deps holds service dependencies for gRPC handlers.
type Deps struct {
	// Tokens validates Bearer access tokens. If nil, no caller is ever authenticated and only public RPCs succeed.
	Tokens interceptors.AccessValidator
	// Gate authorizes callers for the permission, audit and user services.
	Gate *rbac.Gate
	// Workflow is the membership request engine behind MembershipRequestService.
	Workflow membershiphandler.Workflow
	// Capabilities lists a principal's capabilities for AuthzService.
	Capabilities permissionhandler.CapabilityLister
	// AuditRepo backs AuditService. If nil, ListAuditLogs returns Unimplemented.
	AuditRepo auditrepo.Repository
	// AuditLogger records one audit entry per authenticated RPC. If nil, RPCs are not audited.
	AuditLogger audit.AuditLogger
	Users       userhandler.UserStore
	Members     userhandler.MemberLookup
	// HealthPinger is used for readiness (e.g. *sql.DB). If nil, the DB ping is skipped.
	HealthPinger healthhandler.Pinger
	// HealthPolicyChecker is used for readiness (the permission resolver). If nil, the policy check is skipped.
	HealthPolicyChecker healthhandler.PolicyChecker
	Logger              *slog.Logger
}

// PublicMethods are the full method names callable without a Bearer token.
var PublicMethods = map[string]bool{
	membershiphandler.SubmitFullMethod:     true,
	healthgrpc.Health_Check_FullMethodName: true,
}

// RegisterServices registers all gRPC services with the given server.
//
// Service → handler mapping:
//   - MembershipRequestService → internal/membershiprequest/handler
//   - AuthzService             → internal/permission/handler
//   - UserService              → internal/user/handler
//   - AuditService             → internal/audit/handler
//   - grpc.health.v1.Health    → internal/health/handler
func RegisterServices(s grpc.ServiceRegistrar, deps Deps) {
	services := []*rpc.Service{
		membershiphandler.NewServer(deps.Workflow).Service(),
		permissionhandler.NewServer(deps.Gate, deps.Capabilities).Service(),
		userhandler.NewServer(deps.Users, deps.Members, deps.Gate).Service(),
		audithandler.NewServer(deps.AuditRepo, deps.Gate).Service(),
	}
	for _, svc := range services {
		svc.Register(s)
	}
	healthgrpc.RegisterHealthServer(s, healthhandler.NewServer(deps.HealthPinger, deps.HealthPolicyChecker, deps.Logger))
}

// NewServer returns a gRPC server with the interceptor chain (auth, logging, audit) and the
// otelgrpc stats handler installed, and all services registered.
func NewServer(deps Deps, opts ...grpc.ServerOption) *grpc.Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	quiet := map[string]bool{healthgrpc.Health_Check_FullMethodName: true}

	var chain []grpc.UnaryServerInterceptor
	if deps.Tokens != nil {
		chain = append(chain, interceptors.AuthUnary(deps.Tokens, PublicMethods))
	}
	chain = append(chain, interceptors.LoggingUnary(logger, quiet))
	if deps.AuditLogger != nil {
		chain = append(chain, interceptors.AuditUnary(deps.AuditLogger, quiet))
	}

	opts = append([]grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(chain...),
	}, opts...)
	s := grpc.NewServer(opts...)
	RegisterServices(s, deps)
	return s
}
