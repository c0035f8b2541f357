package handler

import (
	"context"
	"log/slog"
	"time"

	healthgrpc "google.golang.org/grpc/health/grpc_health_v1"
)

const checkTimeout = 2 * time.Second

// Pinger checks database connectivity.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker checks that the capability policy evaluates.
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server implements grpc.health.v1.Health for readiness/liveness probes.
// The overall service ("") and every named service report the same status.
type Server struct {
	healthgrpc.UnimplementedHealthServer
	pinger Pinger
	policy PolicyChecker
	logger *slog.Logger
}

// NewServer returns a new Health gRPC server. pinger and policy may be nil; nil checks are skipped.
func NewServer(pinger Pinger, policy PolicyChecker, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{pinger: pinger, policy: policy, logger: logger}
}

// Check reports SERVING when the database answers a ping and the policy evaluates.
// Failures are reported as NOT_SERVING, never as RPC errors.
func (s *Server) Check(ctx context.Context, req *healthgrpc.HealthCheckRequest) (*healthgrpc.HealthCheckResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	st := healthgrpc.HealthCheckResponse_SERVING
	if s.pinger != nil {
		if err := s.pinger.PingContext(ctx); err != nil {
			s.logger.WarnContext(ctx, "health: database ping failed", "error", err)
			st = healthgrpc.HealthCheckResponse_NOT_SERVING
		}
	}
	if s.policy != nil {
		if err := s.policy.HealthCheck(ctx); err != nil {
			s.logger.WarnContext(ctx, "health: policy check failed", "error", err)
			st = healthgrpc.HealthCheckResponse_NOT_SERVING
		}
	}
	return &healthgrpc.HealthCheckResponse{Status: st}, nil
}
