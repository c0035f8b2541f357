package interceptors

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"community-cms/backend/internal/audit"
)

// AuditUnary records one audit event per authenticated RPC once the handler returns,
// including failed calls. Anonymous calls are left to the workflow, which records
// public submissions itself.
func AuditUnary(logger audit.AuditLogger, skipMethods map[string]bool) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = audit.Nop{}
	}
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		if skipMethods[info.FullMethod] {
			return resp, err
		}
		if userID, ok := GetUserID(ctx); ok {
			target := audit.ParseFullMethod(info.FullMethod)
			logger.LogEvent(ctx, userID, target.Action, target.Resource, audit.Metadata(map[string]string{
				"full_method": info.FullMethod,
				"status_code": status.Code(err).String(),
			}))
		}
		return resp, err
	}
}
